package models

import (
	"time"
)

// StatSnapshot is one time-series point of a video's engagement counters,
// appended on each successful refresh and cascade-deleted with its video.
type StatSnapshot struct {
	ID       string `json:"id"`
	VideoID  string `json:"video_id"`
	Views    int64  `json:"views"`
	Likes    int64  `json:"likes"`
	Comments int64  `json:"comments"`
	Shares   int64  `json:"shares"`
	TakenAt  time.Time `json:"taken_at"`
}
