package models

// Role tags the speaker of a turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Turn is one message of the conversation
type Turn struct {
	Role Role
	Text string
}

// Conversation is an append-only, chronologically ordered list of turns
type Conversation struct {
	turns []Turn
}

// NewConversation creates an empty conversation
func NewConversation() *Conversation {
	return &Conversation{turns: make([]Turn, 0)}
}

// Append records a new turn at the end of the conversation
func (c *Conversation) Append(role Role, text string) {
	c.turns = append(c.turns, Turn{Role: role, Text: text})
}

// Turns returns a copy of the turns so callers cannot rewrite history
func (c *Conversation) Turns() []Turn {
	turns := make([]Turn, len(c.turns))
	copy(turns, c.turns)
	return turns
}

// Len returns the number of turns
func (c *Conversation) Len() int {
	return len(c.turns)
}
