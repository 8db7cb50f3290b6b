package transfer

type MediaInput struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
}

type PostCreation struct {
	Content     string       `json:"content"`
	Platforms   []string     `json:"platforms"`
	ScheduledAt string       `json:"scheduled_at"`
	PostKind    string       `json:"post_kind"`
	Media       []MediaInput `json:"media"`
}
