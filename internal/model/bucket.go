package model

import "time"

// Bucket is a pool of alternative choices; a version selects choices from it.
type Bucket struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// BucketChoice is a fixed, ordered bundle of questions inside a bucket.
type BucketChoice struct {
	ID          int64     `json:"id"`
	BucketID    int64     `json:"bucket_id"`
	QuestionIDs []int64   `json:"question_ids"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateBucketRequest is the payload for creating a bucket.
type CreateBucketRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
}

// AddChoiceRequest is the payload for adding a choice to a bucket.
type AddChoiceRequest struct {
	QuestionIDs []int64 `json:"question_ids" binding:"required,min=1,dive,min=1"`
}
