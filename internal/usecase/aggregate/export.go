package aggregate

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/johnquangdev/playcoach/internal/domain/entities"
)

const (
	summarySheet  = "Summary"
	sessionsSheet = "Sessions"
)

// WriteXLSX renders a weekly report as a two-sheet workbook
func WriteXLSX(report *WeeklyReport, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("failed to name summary sheet: %w", err)
	}
	if _, err := f.NewSheet(sessionsSheet); err != nil {
		return fmt.Errorf("failed to create sessions sheet: %w", err)
	}

	delta := ""
	if report.ScoreDelta != nil {
		delta = fmt.Sprintf("%+.1f", *report.ScoreDelta)
	}

	summary := [][]interface{}{
		{"User", report.UserID.String()},
		{"Week", report.Current.Start.Format("2006-01-02")},
		{"Sessions", report.Current.Sessions},
		{"Average score", report.Current.AverageScore},
		{"Previous average", report.Previous.AverageScore},
		{"Delta", delta},
		{},
		{"Mode", "Sessions", "Average score"},
	}
	for _, mode := range []entities.SessionMode{entities.SessionModeCDI, entities.SessionModePDI} {
		m := report.Current.ByMode[mode]
		summary = append(summary, []interface{}{string(mode), m.Sessions, m.AverageScore})
	}
	t := report.Current.Totals
	summary = append(summary,
		[]interface{}{},
		[]interface{}{"Praise", t.Praise},
		[]interface{}{"Reflections", t.Reflection},
		[]interface{}{"Descriptions", t.BehaviorDescription},
		[]interface{}{"Commands", t.Command},
		[]interface{}{"Questions", t.Questions},
		[]interface{}{"Criticism", t.NegativeTalk},
	)
	if err := writeRows(f, summarySheet, summary); err != nil {
		return err
	}

	sessions := [][]interface{}{
		{"Recorded at", "Recording", "Mode", "Score", "Praise", "Reflections", "Descriptions", "Commands", "Questions", "Criticism"},
	}
	for _, s := range report.Sessions {
		c := s.Counts
		sessions = append(sessions, []interface{}{
			s.CreatedAt.Format("2006-01-02 15:04"),
			s.RecordingID.String(),
			string(s.Mode),
			s.Score,
			c.Praise, c.Reflection, c.BehaviorDescription, c.Command, c.Questions, c.NegativeTalk,
		})
	}
	if err := writeRows(f, sessionsSheet, sessions); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		r := row
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
