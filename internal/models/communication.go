package models

// Message is a direct message between two users.
type Message struct {
	ID         string `json:"id" firestore:"-"`
	SenderID   string `json:"senderId" firestore:"senderId"`
	SenderName string `json:"senderName,omitempty" firestore:"senderName,omitempty"`
	ReceiverID string `json:"receiverId" firestore:"receiverId"`
	Subject    string `json:"subject" firestore:"subject"`
	Content    string `json:"content,omitempty" firestore:"content,omitempty"`
	Read       bool   `json:"read" firestore:"read"`
	Timestamp  string `json:"timestamp" firestore:"timestamp"`
}

func (m Message) RecordID() string { return m.ID }
func (m *Message) SetID(id string) { m.ID = id }

// Event is a calendar entry, optionally bound to a class.
type Event struct {
	ID          string `json:"id" firestore:"-"`
	Title       string `json:"title" firestore:"title"`
	Description string `json:"description,omitempty" firestore:"description,omitempty"`
	Start       string `json:"start" firestore:"start"`
	End         string `json:"end" firestore:"end"`
	Type        string `json:"type" firestore:"type"`
	ClassID     string `json:"classId,omitempty" firestore:"classId,omitempty"`
}

func (e Event) RecordID() string { return e.ID }
func (e *Event) SetID(id string) { e.ID = id }
