package recording

// AudioReadyRequest is sent by the upload service once the session audio is in storage
type AudioReadyRequest struct {
	RecordingID     string  `json:"recording_id" validate:"required,uuid"`
	UserID          string  `json:"user_id" validate:"required,uuid"`
	Mode            string  `json:"mode" validate:"required,session_mode"`
	DurationSeconds float64 `json:"duration_seconds" validate:"gt=0"`
	AudioKey        string  `json:"audio_key" validate:"required,max=1024"`
}

// WeeklyReportRequest represents query parameters for the weekly report
type WeeklyReportRequest struct {
	Week   string `query:"week" validate:"omitempty,datetime=2006-01-02"`
	Format string `query:"format" validate:"omitempty,oneof=json xlsx"`
}
