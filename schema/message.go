package schema

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message is a fedora-messaging message as delivered by datagrepper's search
// endpoint or stored in the datanommer messages relation. Only the fields
// this tool consumes are modeled; both payload shapes (direct project event
// and commit-carried event) are explicit.
type Message struct {
	ID      string         `json:"id"`
	Topic   string         `json:"topic"`
	Headers MessageHeaders `json:"headers"`
	Body    MessageBody    `json:"body"`
}

// MessageHeaders carries the transport metadata this tool needs.
type MessageHeaders struct {
	SentAt string `json:"sent-at"`
}

// MessageBody is the message payload. Exactly one of Project or Commit is
// populated depending on the topic family.
type MessageBody struct {
	Agent   string         `json:"agent"`
	Project *ProjectDetail `json:"project"`
	Commit  *CommitDetail  `json:"commit"`
}

// ProjectDetail is the project block of a pagure.project.* event.
type ProjectDetail struct {
	Fullname string `json:"fullname"`
}

// CommitDetail is the commit block of a git.receive event.
type CommitDetail struct {
	Agent     string      `json:"agent"`
	Repo      string      `json:"repo"`
	Namespace string      `json:"namespace"`
	Branch    string      `json:"branch"`
	Stats     CommitStats `json:"stats"`
}

// CommitStats holds per-file change statistics keyed by file path.
type CommitStats struct {
	Files map[string]FileChange `json:"files"`
}

// FileChange is the change statistic of a single file in a commit.
type FileChange struct {
	Additions int `json:"additions"`
	Deletions int `json:"deletions"`
	Lines     int `json:"lines"`
}

// MalformedPayloadError reports a message whose payload is missing a field
// required for normalization. The body is carried along so the offending
// payload can be inspected; ingestion halts on it rather than guessing.
type MalformedPayloadError struct {
	MsgID   string
	Missing string
	Body    MessageBody
}

func (e *MalformedPayloadError) Error() string {
	body, _ := json.Marshal(e.Body)
	return fmt.Sprintf("message %s has no %s: %s", e.MsgID, e.Missing, body)
}

// SentAt returns the time the message was emitted, taken from the sent-at
// header. When the header is absent (older datanommer rows), fallback is
// used instead.
func (m *Message) SentAt(fallback time.Time) (time.Time, error) {
	if m.Headers.SentAt == "" {
		if fallback.IsZero() {
			return time.Time{}, &MalformedPayloadError{MsgID: m.ID, Missing: "sent-at header", Body: m.Body}
		}
		return fallback, nil
	}
	ts, err := time.Parse(time.RFC3339, m.Headers.SentAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("message %s has a bad sent-at header %q: %w", m.ID, m.Headers.SentAt, err)
	}
	return ts, nil
}

// PackageName extracts the affected package. Project events carry it as the
// project fullname; commit events as namespace/repo.
func (m *Message) PackageName() (string, error) {
	if m.Body.Project != nil && m.Body.Project.Fullname != "" {
		return m.Body.Project.Fullname, nil
	}
	if c := m.Body.Commit; c != nil && c.Repo != "" {
		if c.Namespace != "" {
			return c.Namespace + "/" + c.Repo, nil
		}
		return c.Repo, nil
	}
	return "", &MalformedPayloadError{MsgID: m.ID, Missing: "package", Body: m.Body}
}

// Actor extracts the user or agent responsible for the event.
func (m *Message) Actor() (string, error) {
	if m.Body.Agent != "" {
		return m.Body.Agent, nil
	}
	if c := m.Body.Commit; c != nil && c.Agent != "" {
		return c.Agent, nil
	}
	return "", &MalformedPayloadError{MsgID: m.ID, Missing: "actor", Body: m.Body}
}

// Event normalizes the message into a store record. The fallback time is
// used when the sent-at header is missing.
func (m *Message) Event(fallback time.Time) (Event, error) {
	ts, err := m.SentAt(fallback)
	if err != nil {
		return Event{}, err
	}
	pkg, err := m.PackageName()
	if err != nil {
		return Event{}, err
	}
	actor, err := m.Actor()
	if err != nil {
		return Event{}, err
	}
	return NewEvent(m.ID, ts, actor, pkg), nil
}
