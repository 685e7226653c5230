package config

type EventTopicStruct struct {
	VersionPublished  string
	KeyStarted        string
	AnswersRecorded   string
	StageTransitioned string
}

var EventTopic = &EventTopicStruct{
	VersionPublished:  "version.published",
	KeyStarted:        "enrolment_key.started",
	AnswersRecorded:   "enrolment_key.answered",
	StageTransitioned: "stage.transitioned",
}
