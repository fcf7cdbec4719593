package out

import "context"

// SocialGraph 社交关系协作方，用来圈定状态广播的范围
type SocialGraph interface {
	// GetContactIDs 返回用户的好友ID列表
	GetContactIDs(ctx context.Context, userID string) ([]string, error)
}
