package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"gorm.io/gorm"

	"campus_relay/internal/models"
	"campus_relay/internal/repository"
	"campus_relay/internal/storage"
	"campus_relay/pkg/config"
)

type testEnv struct {
	repos    *repository.Repositories
	services *Services
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	return &config.Config{
		WebSocket: config.WebSocketConfig{
			ReadLimit:  4096,
			PongWait:   time.Minute,
			PingPeriod: 54 * time.Second,
			WriteWait:  10 * time.Second,
			SendBuffer: 64,
		},
		Relay: config.RelayConfig{
			TeachingRoles:     []string{"Teacher", "HOD", "Program Manager"},
			AnonymousName:     "Anonymous Student",
			FanoutConcurrency: 4,
			HandlerTimeout:    5 * time.Second,
			MaxContentLength:  500,
		},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := storage.NewSQLiteDB(filepath.Join(t.TempDir(), "relay.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	repos := repository.NewRepositories(db)
	return &testEnv{
		repos:    repos,
		services: NewServices(repos, testConfig(), discardLogger()),
	}
}

func (e *testEnv) user(t *testing.T, name string, role models.UserRole) *models.User {
	t.Helper()
	u := &models.User{Username: name, Password: "hash", Name: name, Role: role}
	if err := e.repos.User.Create(context.Background(), u); err != nil {
		t.Fatalf("Failed to create user %s: %v", name, err)
	}
	return u
}

func (e *testEnv) course(t *testing.T, teacher *models.User, students ...*models.User) *models.Course {
	t.Helper()
	ctx := context.Background()

	c := &models.Course{Name: "Distributed Systems"}
	if teacher != nil {
		c.TeacherID = &teacher.ID
	}
	if err := e.repos.Course.Create(ctx, c); err != nil {
		t.Fatalf("Failed to create course: %v", err)
	}
	for _, s := range students {
		if err := e.repos.Course.Enroll(ctx, c.ID, s.ID); err != nil {
			t.Fatalf("Failed to enroll %d: %v", s.ID, err)
		}
	}
	return c
}

func (e *testEnv) community(t *testing.T, id uint, course *models.Course, status models.CommunityStatus) *models.Community {
	t.Helper()
	c := &models.Community{Model: gorm.Model{ID: id}, Name: "Community", Status: status}
	if course != nil {
		c.CourseID = &course.ID
	}
	if err := e.repos.Community.Create(context.Background(), c); err != nil {
		t.Fatalf("Failed to create community: %v", err)
	}
	return c
}

// connect 建立沒有底層 socket 的連線並完成 register
func (e *testEnv) connect(t *testing.T, u *models.User) *Client {
	t.Helper()
	client := NewClient(nil, u.ID, 64)
	e.services.Hub.Add(client)
	if err := e.services.WebSocket.handle(context.Background(), client, &RegisterEvent{UserID: u.ID}); err != nil {
		t.Fatalf("register %d failed: %v", u.ID, err)
	}
	drain(client)
	return client
}

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// drain 取出佇列裡所有訊框
func drain(c *Client) []frame {
	var frames []frame
	for {
		select {
		case raw := <-c.send:
			var f frame
			if err := json.Unmarshal(raw, &f); err == nil {
				frames = append(frames, f)
			}
		default:
			return frames
		}
	}
}

func only(frames []frame, event string) []frame {
	var out []frame
	for _, f := range frames {
		if f.Event == event {
			out = append(out, f)
		}
	}
	return out
}

func decodeData(t *testing.T, f frame, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(f.Data, dst); err != nil {
		t.Fatalf("Failed to decode %s payload: %v", f.Event, err)
	}
}

func (e *testEnv) notificationsFor(t *testing.T, userID uint) []models.Notification {
	t.Helper()
	list, err := e.repos.Notification.FindByUser(context.Background(), userID, false, 100)
	if err != nil {
		t.Fatalf("FindByUser failed: %v", err)
	}
	return list
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
