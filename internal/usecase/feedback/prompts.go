package feedback

const sessionSystemPrompt = `You coach a parent after a recorded play session with their child.
You receive the coded transcript and the session tallies.
Respond with JSON only:
{"top_moment":{"quote":"<exact parent quote>","utterance_index":<index>},
 "feedback":"<one upbeat opening sentence>",
 "reminder":"<one closing encouragement>",
 "child_insight":"<one short observation about the child's behavior>"}`

const revisionSystemPrompt = `You review per-utterance coaching feedback written for a parent.
Rewrite only feedback that is vague, repetitive or inaccurate for its code.
Lines marked SILENCE are pauses; pick at most %d of them where a short comment
(a description or reflection of the child's play) would have helped, and suggest one.
Respond with JSON only:
{"revisions":[{"utterance_index":<index>,"feedback":"<text>"}],
 "silence_coaching":[{"utterance_index":<index>,"suggestion":"<text>"}]}`

const developmentalSystemPrompt = `Write a short developmental observation (two paragraphs, plain text)
about the child in this play session: language, attention, emotional regulation and
how the child responded to the parent's skills. Do not diagnose.`

const coachingSystemPrompt = `Write coaching notes for the parent (plain text) based on this session:
what went well, the one or two skills to focus on next, and concrete phrases to try.`

const cardsSystemPrompt = `Reformat the coaching notes into 2 to 4 coaching cards.
Respond with JSON only:
{"cards":[{"title":"<short title>","body":"<2-3 sentences>","action":"<one thing to try>"}]}`
