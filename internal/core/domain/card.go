package domain

// Card is the transport-neutral form of a chat reply.
type Card struct {
	Title    string
	Fields   []Field
	Body     string
	Sections []Section
	Actions  []Action
}

type Field struct {
	Label string
	Value string
}

// Section holds the details of one list entry, shown collapsed under the card.
type Section struct {
	Title   string
	Fields  []Field
	Actions []Action
}

// Action is a button. Exactly one of URL or Command is set: URL opens a link,
// Command is dispatched again, as the user who pressed the button, when the
// card is submitted. If Input is set its value is appended to Command.
type Action struct {
	ID      string
	Label   string
	URL     string
	Command string
	Input   *Input
}

type Input struct {
	ID          string
	Placeholder string
}

// Text flattens the card into plain text, used as a fallback by transports
// that cannot render cards.
func (c Card) Text() string {
	out := c.Title
	for _, f := range c.Fields {
		out += "\n" + f.Label + ": " + f.Value
	}
	if c.Body != "" {
		out += "\n" + c.Body
	}
	return out
}
