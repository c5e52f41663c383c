package email

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/jhillyerd/enmime"
)

// Message is a composed digest
type Message struct {
	Subject string
	HTML    string
	Text    string
}

var digestTemplate = template.Must(template.New("digest").Parse(`<div style="font-family: Arial, sans-serif; color: #333;">
  <h2 style="color: #2c3e50;">Memories from this day...</h2>
  <p>
    {{.Count}} {{if eq .Count 1}}photo was{{else}}photos were{{end}} taken on this day in past years.<br><br>
    Press the button below to look at them.<br><br>
  </p>
  <div style="text-align: center; margin-top: 20px;">
    <a href="{{.Link}}"
       style="background-color: #0066cc; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px;"
       target="_blank">
      View photos
    </a>
  </div>
</div>
`))

// ComposeDigest builds the digest for photoCount photos pointing at viewingLink
func ComposeDigest(subject string, photoCount int, viewingLink string) Message {
	noun := "photos were"
	if photoCount == 1 {
		noun = "photo was"
	}
	msg := Message{
		Subject: subject,
		Text: fmt.Sprintf("Memories from this day...\n\n%d %s taken on this day in past years.\n\nView them here: %s\n",
			photoCount, noun, viewingLink),
	}

	var buf bytes.Buffer
	data := struct {
		Count int
		Link  string
	}{photoCount, viewingLink}
	if err := digestTemplate.Execute(&buf, data); err == nil {
		msg.HTML = buf.String()
	}
	return msg
}

// BuildMIME encodes msg as a multipart/alternative message
func BuildMIME(from string, to []string, msg Message, date time.Time) ([]byte, error) {
	builder := enmime.Builder().
		From("", from).
		Subject(msg.Subject).
		Date(date).
		Text([]byte(msg.Text))
	if msg.HTML != "" {
		builder = builder.HTML([]byte(msg.HTML))
	}
	for _, addr := range to {
		builder = builder.To("", addr)
	}

	part, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build message: %w", err)
	}

	var buf bytes.Buffer
	if err := part.Encode(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}
	return buf.Bytes(), nil
}
