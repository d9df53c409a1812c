package accountcleanup

type Input struct{}

type Output struct {
	RunID         string  `json:"runId"`
	TokensDeleted int64   `json:"tokensDeleted"`
	UsersFound    int     `json:"usersFound"`
	UsersDeleted  int     `json:"usersDeleted"`
	UsersFailed   int     `json:"usersFailed"`
	FailedUserIDs []int64 `json:"failedUserIds,omitempty"`
}
