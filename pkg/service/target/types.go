package target

import (
	"github.com/secmon-lab/idsync/pkg/domain/model"
	"github.com/secmon-lab/idsync/pkg/domain/types"
)

// Wire types for the target system's REST API

type groupInfo struct {
	GroupID   string `json:"groupId"`
	GroupName string `json:"groupName"`
}

type groupListResponse struct {
	GroupInfoList []groupInfo `json:"groupInfoList"`
}

type createGroupRequest struct {
	GroupName string `json:"groupName"`
}

type createGroupResponse struct {
	GroupID string `json:"groupId"`
}

type userInfo struct {
	UserID     string   `json:"userId"`
	Email      string   `json:"email"`
	FirstName  string   `json:"firstName"`
	LastName   string   `json:"lastName"`
	UserStatus string   `json:"userStatus"`
	GroupID    string   `json:"groupId"`
	Roles      []string `json:"roles"`
}

type userListResponse struct {
	UserInfoList []userInfo `json:"userInfoList"`
}

type createUserResponse struct {
	UserID string `json:"userId"`
}

type setStatusRequest struct {
	UserStatus string `json:"userStatus"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (u *userInfo) toModel() model.TargetUser {
	roles := make([]types.Role, 0, len(u.Roles))
	for _, r := range u.Roles {
		roles = append(roles, types.Role(r))
	}
	return model.TargetUser{
		ID:        types.TargetUserID(u.UserID),
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Status:    types.UserStatus(u.UserStatus),
		GroupID:   types.GroupID(u.GroupID),
		Roles:     roles,
	}
}
