package poll

// Annotated is a poll decorated with viewer-specific flags. The flags are
// computed per request and never persisted; anonymous viewers get both false.
type Annotated struct {
	Poll
	IsMine   bool
	HasVoted bool
}

// Saved is a poll in a user's personal collection, carrying the caller's own
// ballot choice when they voted before expiry.
type Saved struct {
	Poll
	Expired       bool
	MyOptionIndex *int
}
