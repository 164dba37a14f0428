package ports

import "time"

type Policy struct {
	PollTimeout time.Duration

	BacklogLen    int
	OnBacklogFull string // "drop_oldest", "reject"
}
