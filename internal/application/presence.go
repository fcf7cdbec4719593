package application

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/caixinha/realtime/internal/domain/entity"
	"github.com/caixinha/realtime/internal/events"
	"github.com/caixinha/realtime/internal/ports/in"
	"github.com/caixinha/realtime/internal/ports/out"
)

// PresenceUseCaseImpl 在线状态用例实现
// 内存里的状态表是展示层的唯一真相，持久化只是尽力而为的旁路
type PresenceUseCaseImpl struct {
	mu      sync.RWMutex
	records map[string]*entity.PresenceRecord

	connMgr   out.ConnectionManager
	store     out.PresenceStore
	graph     out.SocialGraph
	publisher out.EventPublisher
	tasks     *TaskQueue
	topic     string
}

// NewPresenceUseCase 创建在线状态用例
// store / publisher 可以为 nil，对应的旁路会被跳过
func NewPresenceUseCase(
	connMgr out.ConnectionManager,
	store out.PresenceStore,
	graph out.SocialGraph,
	publisher out.EventPublisher,
	tasks *TaskQueue,
	topic string,
) in.PresenceUseCase {
	return &PresenceUseCaseImpl{
		records:   make(map[string]*entity.PresenceRecord),
		connMgr:   connMgr,
		store:     store,
		graph:     graph,
		publisher: publisher,
		tasks:     tasks,
		topic:     topic,
	}
}

// HandleConnect 用户新连接接入
// 只有 offline -> online 的转变才广播，多设备重复接入不刷屏
func (uc *PresenceUseCaseImpl) HandleConnect(ctx context.Context, userID string, device *entity.DeviceInfo) {
	now := time.Now()

	uc.mu.Lock()
	rec, ok := uc.records[userID]
	var oldStatus entity.PresenceStatus
	if ok {
		oldStatus = rec.Status
	} else {
		oldStatus = entity.PresenceStatusOffline
		rec = &entity.PresenceRecord{UserID: userID}
		uc.records[userID] = rec
	}
	wasOffline := !rec.Online
	rec.Online = true
	rec.Status = entity.PresenceStatusOnline
	rec.LastActivity = now
	rec.LastUpdated = now
	if device != nil {
		rec.Device = device
	}
	snapshot := *rec
	uc.mu.Unlock()

	if wasOffline {
		uc.broadcastToContacts(ctx, userID, events.UserOnline, map[string]any{
			"user_id":   userID,
			"status":    entity.PresenceStatusOnline,
			"timestamp": now.UnixMilli(),
		})
		uc.publishTransition(userID, oldStatus, entity.PresenceStatusOnline)
	}

	uc.savePresence(&snapshot)
}

// UpdateStatus 客户端主动切换状态
// invisible 抑制广播：记录会更新，但好友收不到任何事件
func (uc *PresenceUseCaseImpl) UpdateStatus(ctx context.Context, userID, status string) {
	normalized := entity.NormalizeStatus(status)
	now := time.Now()

	uc.mu.Lock()
	rec, ok := uc.records[userID]
	if !ok {
		rec = &entity.PresenceRecord{UserID: userID, Online: true}
		uc.records[userID] = rec
	}
	oldStatus := rec.Status
	rec.Status = normalized
	rec.LastActivity = now
	rec.LastUpdated = now
	snapshot := *rec
	uc.mu.Unlock()

	if normalized != entity.PresenceStatusInvisible {
		uc.broadcastToContacts(ctx, userID, events.UserStatusChange, map[string]any{
			"user_id":   userID,
			"status":    normalized,
			"timestamp": now.UnixMilli(),
		})
	}

	if oldStatus != normalized {
		uc.publishTransition(userID, oldStatus, normalized)
	}

	uc.savePresence(&snapshot)
}

// Heartbeat 刷新活跃时间，纯本地记账，无广播无持久化
func (uc *PresenceUseCaseImpl) Heartbeat(userID string) {
	uc.mu.Lock()
	if rec, ok := uc.records[userID]; ok {
		rec.LastActivity = time.Now()
	}
	uc.mu.Unlock()
}

// HandleDisconnect 最后一条连接断开，强制离线
// 断连路径必须走完：持久化失败只记日志，绝不向上传播
func (uc *PresenceUseCaseImpl) HandleDisconnect(ctx context.Context, userID string) {
	now := time.Now()

	uc.mu.Lock()
	rec, ok := uc.records[userID]
	if !ok {
		rec = &entity.PresenceRecord{UserID: userID}
		uc.records[userID] = rec
	}
	oldStatus := rec.Status
	rec.Online = false
	rec.Status = entity.PresenceStatusOffline
	rec.LastSeen = now.Format(time.RFC3339)
	rec.LastUpdated = now
	snapshot := *rec
	uc.mu.Unlock()

	uc.broadcastToContacts(ctx, userID, events.UserOffline, map[string]any{
		"user_id":   userID,
		"last_seen": snapshot.LastSeen,
		"timestamp": now.UnixMilli(),
	})

	uc.publishTransition(userID, oldStatus, entity.PresenceStatusOffline)

	if uc.store != nil && uc.tasks != nil {
		store := uc.store
		uc.tasks.Enqueue(func(taskCtx context.Context) {
			if err := store.SaveLastSeen(taskCtx, userID, now); err != nil {
				zap.L().Warn("save last seen failed",
					zap.String("user_id", userID), zap.Error(err))
			}
		})
	}
	uc.savePresence(&snapshot)
}

// GetOnlineUsers 查询在线用户
// 没有候选列表时回落到社交关系；不在状态表里的一律视为离线
func (uc *PresenceUseCaseImpl) GetOnlineUsers(ctx context.Context, requesterID string, candidates []string) ([]string, error) {
	if len(candidates) == 0 {
		ids, err := uc.graph.GetContactIDs(ctx, requesterID)
		if err != nil {
			return nil, err
		}
		candidates = ids
	}

	uc.mu.RLock()
	defer uc.mu.RUnlock()

	online := make([]string, 0, len(candidates))
	for _, id := range candidates {
		rec, ok := uc.records[id]
		if !ok {
			continue
		}
		if !uc.connMgr.IsOnline(id) {
			continue
		}
		if !rec.Online || rec.Status == entity.PresenceStatusInvisible {
			continue
		}
		online = append(online, id)
	}
	return online, nil
}

// broadcastToContacts 把状态事件发给用户的社交关系里的所有在线好友
func (uc *PresenceUseCaseImpl) broadcastToContacts(ctx context.Context, userID, event string, payload map[string]any) {
	contacts, err := uc.graph.GetContactIDs(ctx, userID)
	if err != nil {
		zap.L().Warn("get contacts failed",
			zap.String("user_id", userID), zap.Error(err))
		return
	}
	for _, contactID := range contacts {
		uc.connMgr.EmitToUser(contactID, event, payload)
	}
}

// publishTransition 把状态转变发布到事件总线，尽力而为
func (uc *PresenceUseCaseImpl) publishTransition(userID string, from, to entity.PresenceStatus) {
	if uc.publisher == nil || uc.tasks == nil {
		return
	}
	event := &entity.PresenceEvent{
		UserID:    userID,
		OldStatus: from,
		NewStatus: to,
		Timestamp: time.Now(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	publisher, topic := uc.publisher, uc.topic
	uc.tasks.Enqueue(func(taskCtx context.Context) {
		if err := publisher.Publish(taskCtx, topic, userID, payload); err != nil {
			zap.L().Warn("publish presence event failed",
				zap.String("user_id", userID), zap.Error(err))
		}
	})
}

// savePresence 异步保存快照
func (uc *PresenceUseCaseImpl) savePresence(rec *entity.PresenceRecord) {
	if uc.store == nil || uc.tasks == nil {
		return
	}
	store := uc.store
	uc.tasks.Enqueue(func(taskCtx context.Context) {
		if err := store.SavePresence(taskCtx, rec); err != nil {
			zap.L().Warn("save presence failed",
				zap.String("user_id", rec.UserID), zap.Error(err))
		}
	})
}
