package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"companion-be/internal/entity"
	"companion-be/internal/repository/contract"

	"github.com/google/uuid"
)

// ChatStore keeps the chat subsystem in process memory. Used with DB_DRIVER=memory and in tests.
type ChatStore struct {
	mu           sync.RWMutex
	sessions     map[uuid.UUID]*entity.ChatSession
	participants map[uuid.UUID][]*entity.ChatParticipant
	messages     map[uuid.UUID][]*entity.ChatMessage
	characters   map[string]*entity.Character
	users        map[uuid.UUID]*entity.UserContext
}

func NewChatStore() *ChatStore {
	return &ChatStore{
		sessions:     make(map[uuid.UUID]*entity.ChatSession),
		participants: make(map[uuid.UUID][]*entity.ChatParticipant),
		messages:     make(map[uuid.UUID][]*entity.ChatMessage),
		characters:   make(map[string]*entity.Character),
		users:        make(map[uuid.UUID]*entity.UserContext),
	}
}

var _ contract.ChatStore = (*ChatStore)(nil)

func (s *ChatStore) PutCharacter(c *entity.Character) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.Id == uuid.Nil {
		c.Id = uuid.New()
	}
	cp := *c
	s.characters[c.Key] = &cp
}

func (s *ChatStore) PutUserContext(u *entity.UserContext) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[u.UserId] = &cp
}

// MessageCount counts every stored message of a session, SYSTEM rows included.
func (s *ChatStore) MessageCount(sessionId uuid.UUID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages[sessionId])
}

func (s *ChatStore) CreateSession(ctx context.Context, session *entity.ChatSession, participants []*entity.ChatParticipant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if session.Id == uuid.Nil {
		session.Id = uuid.New()
	}
	session.CreatedAt = now
	session.UpdatedAt = now

	stored := make([]*entity.ChatParticipant, len(participants))
	for i, p := range participants {
		if p.Id == uuid.Nil {
			p.Id = uuid.New()
		}
		p.ChatSessionId = session.Id
		cp := *p
		stored[i] = &cp
	}

	cp := *session
	cp.Participants = nil
	s.sessions[session.Id] = &cp
	s.participants[session.Id] = stored
	session.Participants = participants
	return nil
}

func (s *ChatStore) FindSession(ctx context.Context, sessionId uuid.UUID) (*entity.ChatSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionId]
	if !ok {
		return nil, nil
	}
	cp := *session
	return &cp, nil
}

func (s *ChatStore) ListSessions(ctx context.Context, userId uuid.UUID) ([]*entity.ChatSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*entity.ChatSession
	for _, session := range s.sessions {
		if session.UserId == userId {
			cp := *session
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (s *ChatStore) UpdateSession(ctx context.Context, session *entity.ChatSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.sessions[session.Id]
	if !ok {
		return nil
	}
	stored.Title = session.Title
	stored.IsClosed = session.IsClosed
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *ChatStore) DeleteSession(ctx context.Context, sessionId uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionId)
	delete(s.participants, sessionId)
	delete(s.messages, sessionId)
	return nil
}

func (s *ChatStore) FindParticipants(ctx context.Context, sessionId uuid.UUID) ([]*entity.ChatParticipant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byId := make(map[uuid.UUID]*entity.Character, len(s.characters))
	for _, c := range s.characters {
		byId[c.Id] = c
	}

	out := make([]*entity.ChatParticipant, 0, len(s.participants[sessionId]))
	for _, p := range s.participants[sessionId] {
		cp := *p
		if c, ok := byId[p.CharacterId]; ok {
			char := *c
			cp.Character = &char
		}
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].OrderIndex < out[j].OrderIndex
	})
	return out, nil
}

func (s *ChatStore) AppendMessages(ctx context.Context, sessionId uuid.UUID, messages []*entity.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, msg := range messages {
		cp := *msg
		s.messages[sessionId] = append(s.messages[sessionId], &cp)
	}
	if session, ok := s.sessions[sessionId]; ok {
		session.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (s *ChatStore) ListMessages(ctx context.Context, query contract.MessageQuery) ([]*entity.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	excluded := make(map[entity.MessageRole]bool, len(query.ExcludeRoles))
	for _, r := range query.ExcludeRoles {
		excluded[r] = true
	}

	var matched []*entity.ChatMessage
	for _, msg := range s.messages[query.SessionId] {
		if excluded[msg.Role] {
			continue
		}
		if query.Before != nil && !query.Before.After(msg.CreatedAt, msg.Id) {
			continue
		}
		cp := *msg
		matched = append(matched, &cp)
	}

	sortChronological(matched)
	if query.Limit > 0 && len(matched) > query.Limit {
		matched = matched[len(matched)-query.Limit:]
	}
	return matched, nil
}

func (s *ChatStore) LatestMessage(ctx context.Context, sessionId uuid.UUID, role entity.MessageRole) (*entity.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var candidates []*entity.ChatMessage
	for _, msg := range s.messages[sessionId] {
		if msg.Role == role {
			candidates = append(candidates, msg)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	sortChronological(candidates)
	cp := *candidates[len(candidates)-1]
	return &cp, nil
}

func (s *ChatStore) NewestMessageTime(ctx context.Context, sessionId uuid.UUID) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var newest time.Time
	for _, msg := range s.messages[sessionId] {
		if msg.CreatedAt.After(newest) {
			newest = msg.CreatedAt
		}
	}
	return newest, nil
}

func (s *ChatStore) FindCharactersByKeys(ctx context.Context, keys []string) ([]*entity.Character, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*entity.Character
	for _, key := range keys {
		if c, ok := s.characters[key]; ok && c.IsActive {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *ChatStore) ListActiveCharacters(ctx context.Context) ([]*entity.Character, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*entity.Character
	for _, c := range s.characters {
		if c.IsActive {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *ChatStore) FindUserContext(ctx context.Context, userId uuid.UUID) (*entity.UserContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[userId]; ok {
		cp := *u
		return &cp, nil
	}
	return &entity.UserContext{UserId: userId, ResponseStyle: entity.ResponseStyleDetailed}, nil
}

func sortChronological(messages []*entity.ChatMessage) {
	sort.SliceStable(messages, func(i, j int) bool {
		if !messages[i].CreatedAt.Equal(messages[j].CreatedAt) {
			return messages[i].CreatedAt.Before(messages[j].CreatedAt)
		}
		return messages[i].Id.String() < messages[j].Id.String()
	})
}
