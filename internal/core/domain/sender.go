package domain

// Sender identifies who sent a chat message. PersonID and RoomID are
// transport details carried along for the reply.
type Sender struct {
	Email       string
	DisplayName string
	PersonID    string
	RoomID      string
}
