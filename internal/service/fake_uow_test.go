package service

import (
	"context"
	"errors"
	"sync"

	"companion-be/internal/entity"
	"companion-be/internal/repository/contract"
	"companion-be/internal/repository/specification"
	"companion-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

// fakeUsers backs UserRepository with maps; specifications other than ByID are ignored.
type fakeUsers struct {
	mu             sync.Mutex
	users          map[uuid.UUID]*entity.User
	prefs          map[uuid.UUID]*entity.UserPreference
	questionnaires map[uuid.UUID]*entity.UserQuestionnaire
	commits        int
	failSave       error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{
		users:          map[uuid.UUID]*entity.User{},
		prefs:          map[uuid.UUID]*entity.UserPreference{},
		questionnaires: map[uuid.UUID]*entity.UserQuestionnaire{},
	}
}

func (f *fakeUsers) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &fakeUow{users: f}
}

func (f *fakeUsers) addUser(name, email string) *entity.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := &entity.User{Id: uuid.New(), FullName: name, Email: email, Role: entity.UserRoleUser}
	f.users[u.Id] = u
	return u
}

func (f *fakeUsers) pref(userId uuid.UUID) *entity.UserPreference {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.prefs[userId]; ok {
		cp := *p
		return &cp
	}
	return nil
}

type fakeUow struct {
	users *fakeUsers
}

func (u *fakeUow) Begin(ctx context.Context) error { return nil }

func (u *fakeUow) Commit() error {
	u.users.mu.Lock()
	u.users.commits++
	u.users.mu.Unlock()
	return nil
}

func (u *fakeUow) Rollback() error { return nil }

func (u *fakeUow) UserRepository() contract.UserRepository { return u.users }

func (u *fakeUow) CharacterRepository() contract.CharacterRepository { return nil }

func (u *fakeUow) ChatSessionRepository() contract.ChatSessionRepository { return nil }

func (u *fakeUow) ChatParticipantRepository() contract.ChatParticipantRepository { return nil }

func (u *fakeUow) ChatMessageRepository() contract.ChatMessageRepository { return nil }

func (f *fakeUsers) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, spec := range specs {
		if byId, ok := spec.(specification.ByID); ok {
			if u, ok := f.users[byId.ID]; ok {
				cp := *u
				return &cp, nil
			}
			return nil, nil
		}
	}
	return nil, errors.New("fakeUsers: FindOne needs ByID")
}

func (f *fakeUsers) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.User
	for _, u := range f.users {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeUsers) FindQuestionnaire(ctx context.Context, userId uuid.UUID) (*entity.UserQuestionnaire, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if q, ok := f.questionnaires[userId]; ok {
		cp := *q
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeUsers) SaveQuestionnaire(ctx context.Context, q *entity.UserQuestionnaire) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSave != nil {
		return f.failSave
	}
	if q.Id == uuid.Nil {
		q.Id = uuid.New()
	}
	cp := *q
	f.questionnaires[q.UserId] = &cp
	return nil
}

func (f *fakeUsers) FindPreference(ctx context.Context, userId uuid.UUID) (*entity.UserPreference, error) {
	return f.pref(userId), nil
}

// FindPreferences mirrors specification.RemindersEnabled.
func (f *fakeUsers) FindPreferences(ctx context.Context, specs ...specification.Specification) ([]*entity.UserPreference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.UserPreference
	for _, p := range f.prefs {
		if p.ReminderEnabled && p.ReminderTime != "" {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeUsers) SavePreference(ctx context.Context, p *entity.UserPreference) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSave != nil {
		return f.failSave
	}
	if p.Id == uuid.Nil {
		p.Id = uuid.New()
	}
	cp := *p
	f.prefs[p.UserId] = &cp
	return nil
}
