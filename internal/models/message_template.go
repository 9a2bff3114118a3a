package models

// MessageTemplate is an editable outbound message body. Templates are
// rendered with Go text/template syntax by the notification pipeline.
type MessageTemplate struct {
	TemplateID string `bson:"template_id" json:"template_id"`
	Locale     string `bson:"locale" json:"locale"`
	Subject    string `bson:"subject" json:"subject"`
	Body       string `bson:"body" json:"body"`
}
