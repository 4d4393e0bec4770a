package model

// Geo is the resolved location of a click.
type Geo struct {
	City    string `json:"city"`
	Region  string `json:"region"`
	Country string `json:"country"`
}

// UserAgent is the parsed client classification of a click.
type UserAgent struct {
	Device  string `json:"device"`
	OS      string `json:"os"`
	Browser string `json:"browser"`
	IsBot   bool   `json:"isBot"`
	BotName string `json:"botName,omitempty"`
}

// UTM holds campaign parameters captured from the inbound query string.
type UTM struct {
	Source   string `json:"source,omitempty"`
	Medium   string `json:"medium,omitempty"`
	Campaign string `json:"campaign,omitempty"`
	Content  string `json:"content,omitempty"`
	Term     string `json:"term,omitempty"`
}

// Empty reports whether no UTM parameter was present at all.
func (u UTM) Empty() bool {
	return u == UTM{}
}

// ClickEvent is one recorded visit. Events are immutable and live in an
// ordered-by-timestamp collection scoped to a single link.
type ClickEvent struct {
	Timestamp int64     `json:"timestamp"` // Unix milliseconds
	Geo       Geo       `json:"geo"`
	UA        UserAgent `json:"ua"`
	Referer   string    `json:"referer,omitempty"`
	UTM       *UTM      `json:"utm,omitempty"`
}
