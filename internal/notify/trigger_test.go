package notify_test

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-course/internal/common"
	"github.com/noah-isme/backend-course/internal/course"
	"github.com/noah-isme/backend-course/internal/notify"
)

type failingMailer struct {
	err   error
	calls int
}

func (f *failingMailer) Send(string, string, string) error {
	f.calls++
	return f.err
}

func basicCourse(t *testing.T) course.Info {
	t.Helper()
	info, ok := course.Lookup("basic")
	require.True(t, ok)
	return info
}

func newTrigger(store notify.DedupeStore, mail common.EmailSender) *notify.Trigger {
	return &notify.Trigger{
		Store:        store,
		Mail:         mail,
		TelegramLink: "https://t.me/+invite",
		BaseURL:      "https://courses.example.com",
		Logger:       zerolog.Nop(),
	}
}

func TestNotifySendsOncePerOrder(t *testing.T) {
	mail := &common.InMemoryEmail{}
	trigger := newTrigger(notify.NewMemoryDedupe(time.Hour), mail)
	ctx := context.Background()
	info := basicCourse(t)

	res, err := trigger.Notify(ctx, "course_basic_1_abcdefghi", "student@example.com", info, course.LocaleUK)
	require.NoError(t, err)
	require.True(t, res.Sent)
	require.False(t, res.Duplicate)

	res, err = trigger.Notify(ctx, "course_basic_1_abcdefghi", "student@example.com", info, course.LocaleUK)
	require.NoError(t, err)
	require.False(t, res.Sent)
	require.True(t, res.Duplicate)

	require.Len(t, mail.Outbox, 1)
	require.Contains(t, mail.Outbox[0].HTML, "https://t.me/+invite")
	require.Contains(t, mail.Outbox[0].HTML, "course_basic_1_abcdefghi")
	require.Contains(t, mail.Outbox[0].HTML, "https://courses.example.com/images/feedback/feedback1.PNG")
	require.Contains(t, mail.Outbox[0].Subject, "course_basic_1_abcdefghi")
}

func TestNotifyDistinctOrdersSendSeparately(t *testing.T) {
	mail := &common.InMemoryEmail{}
	trigger := newTrigger(notify.NewMemoryDedupe(time.Hour), mail)
	ctx := context.Background()
	info := basicCourse(t)

	_, err := trigger.Notify(ctx, "course_basic_1_aaaaaaaaa", "a@example.com", info, course.LocaleEN)
	require.NoError(t, err)
	_, err = trigger.Notify(ctx, "course_basic_2_bbbbbbbbb", "b@example.com", info, course.LocaleEN)
	require.NoError(t, err)

	require.Len(t, mail.Outbox, 2)
}

func TestNotifyWindowExpiry(t *testing.T) {
	now := time.Now()
	store := notify.NewMemoryDedupe(time.Hour)
	store.Now = func() time.Time { return now }
	mail := &common.InMemoryEmail{}
	trigger := newTrigger(store, mail)
	ctx := context.Background()
	info := basicCourse(t)

	_, err := trigger.Notify(ctx, "course_basic_1_abcdefghi", "student@example.com", info, course.LocaleUK)
	require.NoError(t, err)

	now = now.Add(59 * time.Minute)
	res, err := trigger.Notify(ctx, "course_basic_1_abcdefghi", "student@example.com", info, course.LocaleUK)
	require.NoError(t, err)
	require.True(t, res.Duplicate, "still inside the window")

	now = now.Add(2 * time.Minute)
	res, err = trigger.Notify(ctx, "course_basic_1_abcdefghi", "student@example.com", info, course.LocaleUK)
	require.NoError(t, err)
	require.True(t, res.Sent, "window expired, send again")
	require.Len(t, mail.Outbox, 2)
}

func TestNotifyFailedSendStillConsumesWindow(t *testing.T) {
	mail := &failingMailer{err: errors.New("smtp: connection refused")}
	trigger := newTrigger(notify.NewMemoryDedupe(time.Hour), mail)
	ctx := context.Background()
	info := basicCourse(t)

	_, err := trigger.Notify(ctx, "course_basic_1_abcdefghi", "student@example.com", info, course.LocaleUK)
	require.Error(t, err)
	require.Equal(t, 1, mail.calls)

	// the dedupe entry was recorded before the attempt, so an immediate
	// retry inside the window is suppressed rather than re-sent
	res, err := trigger.Notify(ctx, "course_basic_1_abcdefghi", "student@example.com", info, course.LocaleUK)
	require.NoError(t, err)
	require.True(t, res.Duplicate)
	require.Equal(t, 1, mail.calls)
}

func TestNotifyValidation(t *testing.T) {
	trigger := newTrigger(notify.NewMemoryDedupe(time.Hour), &common.InMemoryEmail{})
	_, err := trigger.Notify(context.Background(), "course_basic_1_abcdefghi", "   ", basicCourse(t), course.LocaleUK)
	require.Error(t, err)

	unconfigured := &notify.Trigger{}
	_, err = unconfigured.Notify(context.Background(), "ref", "a@b.com", basicCourse(t), course.LocaleUK)
	require.Error(t, err)
}

func TestNotifyRedisDedupe(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	mail := &common.InMemoryEmail{}
	trigger := newTrigger(notify.RedisDedupe{R: client, TTL: time.Hour}, mail)
	ctx := context.Background()
	info := basicCourse(t)

	res, err := trigger.Notify(ctx, "course_basic_1_abcdefghi", "student@example.com", info, course.LocaleUK)
	require.NoError(t, err)
	require.True(t, res.Sent)

	res, err = trigger.Notify(ctx, "course_basic_1_abcdefghi", "student@example.com", info, course.LocaleUK)
	require.NoError(t, err)
	require.True(t, res.Duplicate)

	mr.FastForward(time.Hour + time.Minute)

	res, err = trigger.Notify(ctx, "course_basic_1_abcdefghi", "student@example.com", info, course.LocaleUK)
	require.NoError(t, err)
	require.True(t, res.Sent)
	require.Len(t, mail.Outbox, 2)
}

func TestNotifyLocaleSelectsTemplate(t *testing.T) {
	mail := &common.InMemoryEmail{}
	trigger := newTrigger(notify.NewMemoryDedupe(time.Hour), mail)
	info := basicCourse(t)

	_, err := trigger.Notify(context.Background(), "course_basic_1_aaaaaaaaa", "uk@example.com", info, course.LocaleUK)
	require.NoError(t, err)
	_, err = trigger.Notify(context.Background(), "course_basic_2_bbbbbbbbb", "en@example.com", info, course.LocaleEN)
	require.NoError(t, err)

	require.Contains(t, mail.Outbox[0].HTML, "Оплата успішна")
	require.Contains(t, mail.Outbox[1].HTML, "Payment Successful")
}
