package model

// Stage is one message of a customer's review-request sequence.
type Stage string

const (
	StageInitial        Stage = "initial"
	StageFirstFollowUp  Stage = "first_follow_up"
	StageSecondFollowUp Stage = "second_follow_up"
	StageFinalFollowUp  Stage = "final_follow_up"
)

// Stages lists the sequence in send order.
var Stages = []Stage{StageInitial, StageFirstFollowUp, StageSecondFollowUp, StageFinalFollowUp}

func (s Stage) Valid() bool {
	return s.Index() >= 0
}

// Index is the position of s in Stages, or -1.
func (s Stage) Index() int {
	for i, st := range Stages {
		if st == s {
			return i
		}
	}
	return -1
}

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// AllChannels lists delivery channels in dispatch order.
var AllChannels = []Channel{ChannelEmail, ChannelSMS}

func (c Channel) Valid() bool {
	return c == ChannelEmail || c == ChannelSMS
}

type RequestStatus string

const (
	RequestStatusPending      RequestStatus = "pending"
	RequestStatusInProgress   RequestStatus = "in_progress"
	RequestStatusCompleted    RequestStatus = "completed"
	RequestStatusUnsubscribed RequestStatus = "unsubscribed"
)

// Terminal statuses accept no further stage transitions.
func (s RequestStatus) Terminal() bool {
	return s == RequestStatusCompleted || s == RequestStatusUnsubscribed
}

func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusPending, RequestStatusInProgress, RequestStatusCompleted, RequestStatusUnsubscribed:
		return true
	}
	return false
}
