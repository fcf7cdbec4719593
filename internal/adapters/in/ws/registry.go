package ws

import (
	"sync"

	"go.uber.org/zap"

	"github.com/caixinha/realtime/internal/events"
)

// Registry 进程内连接注册表
// 用户↔连接的双向索引加上房间成员关系，所有变更都走这里
// 复合操作（移除→判空→离线）在同一次加锁里完成
type Registry struct {
	mu        sync.RWMutex
	conns     map[string]*Conn               // connID -> 连接
	userConns map[string]map[string]struct{} // userID -> connID集合
	connUser  map[string]string              // connID -> userID 反向索引
	userRooms map[string]map[string]struct{} // userID -> 房间集合（仅作查询记账）
	roomConns map[string]map[string]struct{} // room -> connID集合，扇出的依据
	connRooms map[string]map[string]struct{} // connID -> 房间集合，断连时清扫用
}

// RegistryStats 注册表快照
type RegistryStats struct {
	Connections int `json:"connections"`
	OnlineUsers int `json:"online_users"`
	Rooms       int `json:"rooms"`
}

// NewRegistry 创建注册表
func NewRegistry() *Registry {
	return &Registry{
		conns:     make(map[string]*Conn),
		userConns: make(map[string]map[string]struct{}),
		connUser:  make(map[string]string),
		userRooms: make(map[string]map[string]struct{}),
		roomConns: make(map[string]map[string]struct{}),
		connRooms: make(map[string]map[string]struct{}),
	}
}

// Register 幂等登记一条已认证连接，缺ID时记日志直接返回
func (r *Registry) Register(conn *Conn) {
	if conn == nil || conn.ID() == "" || conn.UserID() == "" {
		zap.L().Warn("register skipped: missing connection or user id")
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.conns[conn.ID()] = conn
	r.connUser[conn.ID()] = conn.UserID()
	if _, ok := r.userConns[conn.UserID()]; !ok {
		r.userConns[conn.UserID()] = make(map[string]struct{})
	}
	r.userConns[conn.UserID()][conn.ID()] = struct{}{}

	zap.L().Info("connection registered",
		zap.String("conn_id", conn.ID()),
		zap.String("user_id", conn.UserID()),
		zap.Int("total_conns", len(r.conns)))
}

// Remove 摘除连接，返回属主用户和该用户是否因此完全离线
// 未知connID是静默空操作
func (r *Registry) Remove(connID string) (userID string, wentOffline bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.connUser[connID]
	if !ok {
		return "", false
	}

	delete(r.conns, connID)
	delete(r.connUser, connID)

	if set, ok := r.userConns[userID]; ok {
		delete(set, connID)
		if len(set) == 0 {
			delete(r.userConns, userID)
			delete(r.userRooms, userID)
			wentOffline = true
		}
	}

	// 清扫该连接加入过的房间
	for room := range r.connRooms[connID] {
		if members, ok := r.roomConns[room]; ok {
			delete(members, connID)
			if len(members) == 0 {
				delete(r.roomConns, room)
			}
		}
	}
	delete(r.connRooms, connID)

	zap.L().Info("connection removed",
		zap.String("conn_id", connID),
		zap.String("user_id", userID),
		zap.Bool("went_offline", wentOffline),
		zap.Int("total_conns", len(r.conns)))
	return userID, wentOffline
}

// IsOnline 用户是否至少持有一条连接
func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.userConns[userID]) > 0
}

// GetConnections 解析用户的在线连接，过滤掉已经失效的
func (r *Registry) GetConnections(userID string) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, ok := r.userConns[userID]
	if !ok {
		return nil
	}
	conns := make([]*Conn, 0, len(set))
	for id := range set {
		if conn, ok := r.conns[id]; ok && !conn.IsClosed() {
			conns = append(conns, conn)
		}
	}
	return conns
}

// JoinRoom 连接加入房间并维护用户的房间记账
func (r *Registry) JoinRoom(conn *Conn, room string) {
	if conn == nil || room == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.roomConns[room]; !ok {
		r.roomConns[room] = make(map[string]struct{})
	}
	r.roomConns[room][conn.ID()] = struct{}{}

	if _, ok := r.connRooms[conn.ID()]; !ok {
		r.connRooms[conn.ID()] = make(map[string]struct{})
	}
	r.connRooms[conn.ID()][room] = struct{}{}

	if _, ok := r.userRooms[conn.UserID()]; !ok {
		r.userRooms[conn.UserID()] = make(map[string]struct{})
	}
	r.userRooms[conn.UserID()][room] = struct{}{}
}

// LeaveRoom 连接离开房间，用户的房间集合清空时整条记账一起删掉
func (r *Registry) LeaveRoom(conn *Conn, room string) {
	if conn == nil || room == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if members, ok := r.roomConns[room]; ok {
		delete(members, conn.ID())
		if len(members) == 0 {
			delete(r.roomConns, room)
		}
	}
	if rooms, ok := r.connRooms[conn.ID()]; ok {
		delete(rooms, room)
		if len(rooms) == 0 {
			delete(r.connRooms, conn.ID())
		}
	}
	if rooms, ok := r.userRooms[conn.UserID()]; ok {
		delete(rooms, room)
		if len(rooms) == 0 {
			delete(r.userRooms, conn.UserID())
		}
	}
}

// Rooms 用户当前加入的房间，无须查询传输层
func (r *Registry) Rooms(userID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, ok := r.userRooms[userID]
	if !ok {
		return nil
	}
	rooms := make([]string, 0, len(set))
	for room := range set {
		rooms = append(rooms, room)
	}
	return rooms
}

// EmitToUser 扇出到该用户的所有在线连接，无连接时返回false
func (r *Registry) EmitToUser(userID, event string, payload any) bool {
	conns := r.GetConnections(userID)
	if len(conns) == 0 {
		return false
	}
	data, err := events.Encode(event, payload)
	if err != nil {
		zap.L().Error("encode event failed", zap.String("event", event), zap.Error(err))
		return false
	}
	for _, conn := range conns {
		if err := conn.Send(data); err != nil {
			zap.L().Warn("emit to user failed",
				zap.String("user_id", userID),
				zap.String("conn_id", conn.ID()),
				zap.Error(err))
		}
	}
	return true
}

// EmitToUserExcept 扇出到该用户除指定连接外的其他设备，多端状态同步用
func (r *Registry) EmitToUserExcept(userID, exceptConnID, event string, payload any) {
	conns := r.GetConnections(userID)
	if len(conns) == 0 {
		return
	}
	data, err := events.Encode(event, payload)
	if err != nil {
		zap.L().Error("encode event failed", zap.String("event", event), zap.Error(err))
		return
	}
	for _, conn := range conns {
		if conn.ID() == exceptConnID {
			continue
		}
		conn.Send(data)
	}
}

// EmitToRoom 扇出到房间里的所有连接
func (r *Registry) EmitToRoom(room, event string, payload any) {
	r.emitRoom(room, "", event, payload)
}

// EmitToRoomExcept 扇出到房间里除指定连接外的所有连接
func (r *Registry) EmitToRoomExcept(room, exceptConnID, event string, payload any) {
	r.emitRoom(room, exceptConnID, event, payload)
}

func (r *Registry) emitRoom(room, exceptConnID, event string, payload any) {
	r.mu.RLock()
	members := make([]*Conn, 0, len(r.roomConns[room]))
	for id := range r.roomConns[room] {
		if id == exceptConnID {
			continue
		}
		if conn, ok := r.conns[id]; ok && !conn.IsClosed() {
			members = append(members, conn)
		}
	}
	r.mu.RUnlock()

	if len(members) == 0 {
		return
	}
	data, err := events.Encode(event, payload)
	if err != nil {
		zap.L().Error("encode event failed", zap.String("event", event), zap.Error(err))
		return
	}
	for _, conn := range members {
		conn.Send(data)
	}
}

// BroadcastExcept 发给除指定用户以外的所有连接，O(总连接数)
func (r *Registry) BroadcastExcept(senderUserID, event string, payload any) {
	data, err := events.Encode(event, payload)
	if err != nil {
		zap.L().Error("encode event failed", zap.String("event", event), zap.Error(err))
		return
	}

	r.mu.RLock()
	targets := make([]*Conn, 0, len(r.conns))
	for id, conn := range r.conns {
		if r.connUser[id] == senderUserID || conn.IsClosed() {
			continue
		}
		targets = append(targets, conn)
	}
	r.mu.RUnlock()

	for _, conn := range targets {
		conn.Send(data)
	}
}

// BroadcastAll 发给所有在线连接，停机通告用
func (r *Registry) BroadcastAll(event string, payload any) {
	r.BroadcastExcept("", event, payload)
}

// Stats 注册表快照
func (r *Registry) Stats() RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return RegistryStats{
		Connections: len(r.conns),
		OnlineUsers: len(r.userConns),
		Rooms:       len(r.roomConns),
	}
}

// Shutdown 关闭所有连接并清空索引，进程收尾时调用
func (r *Registry) Shutdown() {
	r.mu.Lock()
	conns := make([]*Conn, 0, len(r.conns))
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}
	r.conns = make(map[string]*Conn)
	r.userConns = make(map[string]map[string]struct{})
	r.connUser = make(map[string]string)
	r.userRooms = make(map[string]map[string]struct{})
	r.roomConns = make(map[string]map[string]struct{})
	r.connRooms = make(map[string]map[string]struct{})
	r.mu.Unlock()

	for _, conn := range conns {
		conn.Close()
	}
}
