package models

type ActionType string

const (
	ActionLike ActionType = "LIKE"
	ActionPass ActionType = "PASS"
)

// SurveyStatusBefore marks a user who has not yet answered the follow-up survey.
const SurveyStatusBefore = "BEFORE_SURVEY"

// Card is one recommended profile in the swipe deck.
type Card struct {
	UserID          int64    `json:"userId"`
	Nickname        string   `json:"nickname"`
	ProfileImageURL string   `json:"profileImageUrl"`
	Dsti            string   `json:"dsti"`
	SelfIntro       string   `json:"selfIntro"`
	GithubID        string   `json:"githubId"`
	Positions       []string `json:"positions"`
	TechSkills      []string `json:"techSkills"`
}

type Candidates struct {
	ExposureID      int64  `json:"exposureId"`
	DailyLimit      int    `json:"dailyLimit"`
	RemainingSwipes int    `json:"remainingSwipes"`
	Cards           []Card `json:"cards"`
}

type ActionRequest struct {
	ExposureID int64      `json:"exposureId"`
	UserID     int64      `json:"userId"`
	ActionType ActionType `json:"actionType"`
}

type ActionResult struct {
	ExtraSurveyStatus string `json:"extraSurveyStatus"`
}
