// Package domain defines the data model shared by the state layer, the
// persistent store, and the HTTP transport. All types here are plain values
// serialized as JSON; they carry no persistence or transport behavior.
package domain

import "time"

// Sender identifies which side of a conversation authored a message.
type Sender string

const (
	// SenderSelf marks a message written by the authenticated user.
	SenderSelf Sender = "self"
	// SenderPeer marks a message produced by the simulated peer.
	SenderPeer Sender = "peer"
)

// Valid reports whether s is one of the two known sender values.
func (s Sender) Valid() bool { return s == SenderSelf || s == SenderPeer }

// User is the single authenticated session record. Exactly one instance may
// be current at a time; it is created on successful challenge verification
// and destroyed on logout.
//
// Invariant: IsAuthenticated == true implies ID is a stable opaque token
// generated at creation and never rewritten.
type User struct {
	ID              string `json:"id"`
	PhoneNumber     string `json:"phoneNumber"`
	CountryCode     string `json:"countryCode"`
	IsAuthenticated bool   `json:"isAuthenticated"`
}

// Chatroom is one entry of the chatroom directory. IDs are unique within the
// directory; deletion cascades to the room's conversation log.
//
// LastMessage/LastMessageTime are display metadata updated in place when a
// message lands; updating them never reorders the directory.
type Chatroom struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	CreatedAt       time.Time  `json:"createdAt"`
	LastMessage     string     `json:"lastMessage,omitempty"`
	LastMessageTime *time.Time `json:"lastMessageTime,omitempty"`
}

// Message is a single immutable utterance inside one chatroom's log.
//
// Within a log, messages are kept newest-first: timestamps are monotonically
// non-increasing as the slice is walked from index 0.
type Message struct {
	ID         string    `json:"id"`
	ChatroomID string    `json:"chatroomId"`
	Content    string    `json:"content"`
	Sender     Sender    `json:"sender"`
	Timestamp  time.Time `json:"timestamp"`
	ImageURL   string    `json:"imageUrl,omitempty"`
}

// Country is one entry of the phone-prefix picker data source.
type Country struct {
	Name     string `json:"name"`
	Code     string `json:"code"`
	DialCode string `json:"dialCode"`
	Flag     string `json:"flag"`
}

// ThemeMode is the persisted display-mode flag.
type ThemeMode string

const (
	ThemeLight ThemeMode = "light"
	ThemeDark  ThemeMode = "dark"
)

// Valid reports whether m is a known theme mode.
func (m ThemeMode) Valid() bool { return m == ThemeLight || m == ThemeDark }
