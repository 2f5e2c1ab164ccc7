package service

import (
	"fmt"

	"github.com/JayPixl/ocmafia-old-sub000/internal/models"
)

// ViewerKind 访问者分类
type ViewerKind string

const (
	ViewerHost        ViewerKind = "HOST"        // 本局主持人或全局管理员
	ViewerParticipant ViewerKind = "PARTICIPANT" // 有角色报名本局的用户
	ViewerSpectator   ViewerKind = "SPECTATOR"   // 其他所有访问者（含匿名）
)

// Viewer 访问者身份（来自请求上下文，匿名时UserID为0）
type Viewer struct {
	UserID     uint
	IsAdmin    bool
	Characters []*models.Character // 访问者拥有的角色
}

// Anonymous 是否为匿名访问者
func (v *Viewer) Anonymous() bool {
	return v.UserID == 0
}

// Access 分类结果
// Redirect非空时表示访问被拒绝，调用方应跳转到该路径而不是报错
// （私密房间的存在本身就是敏感信息，不返回403）
type Access struct {
	Kind      ViewerKind
	Character *models.Character // 仅PARTICIPANT持有，发言时的角色身份
	Permitted []*models.ChatRoom
	Redirect  string
}

// Denied 访问是否被拒绝
func (a *Access) Denied() bool {
	return a.Redirect != ""
}

// redirectGames 游戏不存在时跳转到游戏列表
func redirectGames() *Access {
	return &Access{Kind: ViewerSpectator, Redirect: "/games"}
}

// redirectGameHome 房间不可访问时跳转到游戏主页
func redirectGameHome(gameID uint) *Access {
	return &Access{Kind: ViewerSpectator, Redirect: fmt.Sprintf("/games/%d", gameID)}
}

// Classify 访问分类器
// 纯函数：只依赖传入的持久化状态和访问者身份，无副作用
// 规则按顺序匹配，先命中者生效：
//  1. 主持人（host表成员或全局管理员）→ HOST，所有房间、所有战报（含草稿）
//  2. 游戏报名中且目标房间为赛前大厅 → SPECTATOR，仅赛前大厅
//  3. 游戏已结束且目标房间为赛后大厅 → SPECTATOR，仅赛后大厅
//  4. 访问者有角色报名本局 → PARTICIPANT，会议室+演绎室+白名单内的私密房间
//  5. 其余 → SPECTATOR，仅公开房间；目标不在许可集合内时跳转游戏主页
//
// game为nil跳转游戏列表；target为nil且指定了目标时跳转游戏主页
func Classify(viewer *Viewer, game *models.Game, rooms []*models.ChatRoom, target *models.ChatRoom) *Access {
	if game == nil {
		return redirectGames()
	}

	// 规则1：主持人看到一切
	if viewer != nil && (viewer.IsAdmin || game.HostedBy(viewer.UserID)) {
		return &Access{
			Kind:      ViewerHost,
			Permitted: rooms,
		}
	}

	// 规则2/3：赛前/赛后大厅的旁观窗口，优先于参与者判定
	if target != nil {
		if game.IsEnlisting() && target.Type == models.RoomTypePreGame {
			return &Access{
				Kind:      ViewerSpectator,
				Permitted: roomsOfType(rooms, models.RoomTypePreGame),
			}
		}
		if game.IsCompleted() && target.Type == models.RoomTypePostGame {
			return &Access{
				Kind:      ViewerSpectator,
				Permitted: roomsOfType(rooms, models.RoomTypePostGame),
			}
		}
	}

	// 规则4：参与者
	if character := enlistedCharacter(viewer, game); character != nil {
		permitted := participantRooms(rooms, character.ID)
		if target != nil && !containsRoom(permitted, target.ID) {
			return redirectGameHome(game.ID)
		}
		return &Access{
			Kind:      ViewerParticipant,
			Character: character,
			Permitted: permitted,
		}
	}

	// 规则5：旁观者只看公开房间
	permitted := publicRooms(rooms)
	if target != nil && !containsRoom(permitted, target.ID) {
		return redirectGameHome(game.ID)
	}
	return &Access{
		Kind:      ViewerSpectator,
		Permitted: permitted,
	}
}

// ClassifyRoom 目标房间不存在时的分类入口
// 房间缺失与无权访问表现一致：跳转游戏主页
func ClassifyRoom(viewer *Viewer, game *models.Game, rooms []*models.ChatRoom, roomID uint) *Access {
	if game == nil {
		return redirectGames()
	}
	var target *models.ChatRoom
	for _, r := range rooms {
		if r.ID == roomID {
			target = r
			break
		}
	}
	if target == nil {
		// 主持人对不存在的房间同样跳转
		return redirectGameHome(game.ID)
	}
	return Classify(viewer, game, rooms, target)
}

// CanSend 分类结果是否允许向目标房间发言
// 主持人任意房间；参与者限许可集合；旁观者仅限赛前/赛后窗口
// 匿名访问者不能发言
func (a *Access) CanSend(viewer *Viewer, game *models.Game, target *models.ChatRoom) bool {
	if a.Denied() || viewer == nil || viewer.Anonymous() {
		return false
	}
	switch a.Kind {
	case ViewerHost:
		return true
	case ViewerParticipant:
		return containsRoom(a.Permitted, target.ID)
	case ViewerSpectator:
		if game.IsEnlisting() && target.Type == models.RoomTypePreGame {
			return true
		}
		if game.IsCompleted() && target.Type == models.RoomTypePostGame {
			return true
		}
	}
	return false
}

// SeesDrafts 是否可见草稿战报
func (a *Access) SeesDrafts() bool {
	return a.Kind == ViewerHost
}

// enlistedCharacter 在游戏参与者中查找访问者拥有的角色
func enlistedCharacter(viewer *Viewer, game *models.Game) *models.Character {
	if viewer == nil || viewer.Anonymous() {
		return nil
	}
	for _, c := range viewer.Characters {
		if game.HasParticipant(c.ID) {
			return c
		}
	}
	return nil
}

// participantRooms 参与者的许可房间：会议室、演绎室、白名单内的私密房间
func participantRooms(rooms []*models.ChatRoom, characterID uint) []*models.ChatRoom {
	permitted := make([]*models.ChatRoom, 0, len(rooms))
	for _, r := range rooms {
		switch r.Type {
		case models.RoomTypeMeetingRoom, models.RoomTypeRoleplay:
			permitted = append(permitted, r)
		case models.RoomTypePrivate:
			if r.Allows(characterID) {
				permitted = append(permitted, r)
			}
		}
	}
	return permitted
}

// publicRooms 公开可见的房间
func publicRooms(rooms []*models.ChatRoom) []*models.ChatRoom {
	permitted := make([]*models.ChatRoom, 0, len(rooms))
	for _, r := range rooms {
		if r.Type.Public() {
			permitted = append(permitted, r)
		}
	}
	return permitted
}

// roomsOfType 按类型过滤房间
func roomsOfType(rooms []*models.ChatRoom, t models.RoomType) []*models.ChatRoom {
	filtered := make([]*models.ChatRoom, 0, 1)
	for _, r := range rooms {
		if r.Type == t {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// containsRoom 房间集合是否包含指定ID
func containsRoom(rooms []*models.ChatRoom, id uint) bool {
	for _, r := range rooms {
		if r.ID == id {
			return true
		}
	}
	return false
}
