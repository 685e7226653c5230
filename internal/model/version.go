package model

import "time"

// BucketSelection names the choices of one bucket included in a version.
type BucketSelection struct {
	BucketID  int64   `json:"bucketId" binding:"required,min=1"`
	ChoiceIDs []int64 `json:"choiceIds" binding:"required,min=1,dive,min=1"`
}

// VersionSnapshot is the frozen content of a test version. It is stored as
// JSONB and never rewritten after the version row is inserted.
type VersionSnapshot struct {
	QuestionIDs []int64           `json:"questionIds"`
	Buckets     []BucketSelection `json:"buckets"`
}

// Version is a named, immutable test version.
type Version struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Snapshot  VersionSnapshot `json:"data"`
	Current   bool            `json:"current"`
	CreatedAt time.Time       `json:"created_at"`
}

// PublishVersionRequest is the payload for publishing a new current version.
type PublishVersionRequest struct {
	Name        string            `json:"name" binding:"required,min=1,max=45"`
	QuestionIDs []int64           `json:"questionIds" binding:"dive,min=1"`
	Buckets     []BucketSelection `json:"buckets" binding:"dive"`
}

// DifficultyGroups splits a topic's questions by difficulty.
type DifficultyGroups struct {
	Easy   []Question `json:"easy"`
	Medium []Question `json:"medium"`
	Hard   []Question `json:"hard"`
}

// ResolvedChoice is a bucket choice with its questions in snapshot order.
type ResolvedChoice struct {
	ID        int64      `json:"id"`
	Questions []Question `json:"questions"`
}

// ResolvedBucket is a bucket with the choices a version selected from it.
type ResolvedBucket struct {
	ID      int64            `json:"id"`
	Name    string           `json:"name"`
	Choices []ResolvedChoice `json:"choices"`
}

// ResolvedVersion is a version snapshot resolved into question content.
type ResolvedVersion struct {
	VersionID      int64                      `json:"version_id"`
	WithoutChoices map[Topic]DifficultyGroups `json:"withoutChoices"`
	Buckets        []ResolvedBucket           `json:"buckets"`
}
