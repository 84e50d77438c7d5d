package service

import (
	"campus_relay/internal/models"
)

// Gate 是無狀態的准入檢查，在持久化與廣播之前執行
type Gate struct {
	teachingRoles map[models.UserRole]struct{}
}

func NewGate(teachingRoles []string) *Gate {
	roles := make(map[models.UserRole]struct{}, len(teachingRoles))
	for _, role := range teachingRoles {
		roles[models.UserRole(role)] = struct{}{}
	}
	return &Gate{teachingRoles: roles}
}

// IsPrivileged 只有管理員可以無視社群停用狀態
func (g *Gate) IsPrivileged(role models.UserRole) bool {
	return role == models.RoleAdmin
}

func (g *Gate) IsTeaching(role models.UserRole) bool {
	_, ok := g.teachingRoles[role]
	return ok
}

// AdmitCommunitySend 停用的社群只有管理員可以發言
func (g *Gate) AdmitCommunitySend(sender models.UserRole, status models.CommunityStatus) error {
	if status == models.CommunityInactive && !g.IsPrivileged(sender) {
		return ErrCommunityInactive
	}
	return nil
}

// AdmitAnonymous 匿名私訊只允許學生寄給教學角色
func (g *Gate) AdmitAnonymous(sender, receiver models.UserRole) error {
	if sender != models.RoleStudent || !g.IsTeaching(receiver) {
		return ErrAnonymousNotAllowed
	}
	return nil
}

// AdmitDelete 發送者本人或管理員可以刪除社群消息
func (g *Gate) AdmitDelete(actorID uint, actorRole models.UserRole, message *models.Message) error {
	if message.SenderID == actorID || g.IsPrivileged(actorRole) {
		return nil
	}
	return ErrForbidden
}

// AdmitNotify 單一通知可以由管理員或教學角色發送
func (g *Gate) AdmitNotify(role models.UserRole) error {
	if g.IsPrivileged(role) || g.IsTeaching(role) {
		return nil
	}
	return ErrForbidden
}

// AdmitBroadcast 角色廣播只允許管理員
func (g *Gate) AdmitBroadcast(role models.UserRole) error {
	if g.IsPrivileged(role) {
		return nil
	}
	return ErrForbidden
}
