package enum

type Priority string

const (
	PriorityLow     Priority = "Low"
	PriorityMedium  Priority = "Medium"
	PriorityHigh    Priority = "High"
	PriorityUnknown Priority = "Unknown"
)

func (p Priority) String() string {
	return string(p)
}

type MessageState string

const (
	MessageFetched    MessageState = "fetched"
	MessageNormalized MessageState = "normalized"
	MessageClassified MessageState = "classified"
	MessageSummarized MessageState = "summarized"
	MessagePersisted  MessageState = "persisted"
	MessageSkipped    MessageState = "skipped"
)

func (s MessageState) String() string {
	return string(s)
}

type SourceType string

const (
	SourceIMAP    SourceType = "imap"
	SourceGmail   SourceType = "gmail"
	SourceFixture SourceType = "fixture"
	SourceAPI     SourceType = "api"
)

func (t SourceType) String() string {
	return string(t)
}

type SummaryMode string

const (
	SummaryShort SummaryMode = "short"
	SummaryLong  SummaryMode = "long"
)

func (m SummaryMode) String() string {
	return string(m)
}

type ClassifierMode string

const (
	ClassifierLLM   ClassifierMode = "llm"
	ClassifierRules ClassifierMode = "rules"
)

func (m ClassifierMode) String() string {
	return string(m)
}
