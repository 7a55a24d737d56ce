// Package protocol defines the JSON records exchanged over the chat WebSocket.
//
// Every frame is a single JSON object carrying a "type" discriminator. Client
// frames are decoded once, at the connection boundary, into one of the
// Inbound variants; server frames are built from the Outbound variants and
// encoded with Encode.
package protocol

// Kind is the value of the "type" discriminator of a frame.
type Kind string

// Client to server kinds.
const (
	KindSetUsername    Kind = "setUsername"
	KindJoinRoom       Kind = "joinRoom"
	KindLeaveRoom      Kind = "leaveRoom"
	KindMessage        Kind = "message"
	KindPrivateMessage Kind = "privateMessage"
)

// Server to client kinds. KindMessage and KindPrivateMessage are shared with
// the inbound direction.
const (
	KindInit       Kind = "init"
	KindRoomJoined Kind = "roomJoined"
	KindUserJoined Kind = "userJoined"
	KindUserLeft   Kind = "userLeft"
	KindUserList   Kind = "userList"
	KindError      Kind = "error"
)

// StatusOnline is the only presence status reported for registered users.
const StatusOnline = "online"

// TimestampLayout formats chat timestamps as fixed-width UTC instants so that
// they sort lexicographically.
const TimestampLayout = "2006-01-02T15:04:05.000Z"
