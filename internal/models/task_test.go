package models

import (
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func TestTask_ReminderEligible(t *testing.T) {
	task := Task{Status: TaskStatusActive, ReminderInterval: 30}
	if !task.ReminderEligible() {
		t.Error("active task with interval 30 should be eligible")
	}

	task.ReminderInterval = 0
	if task.ReminderEligible() {
		t.Error("interval 0 must never be eligible")
	}

	task.ReminderInterval = 30
	task.Status = TaskStatusCompleted
	if task.ReminderEligible() {
		t.Error("completed task must never be eligible")
	}
}

func TestTask_EffectiveInterval_DemoSentinel(t *testing.T) {
	task := Task{Status: TaskStatusActive, ReminderInterval: 1}
	if got := task.EffectiveInterval(); got != 5*time.Second {
		t.Errorf("interval sentinel 1 should map to 5s, got %v", got)
	}

	task.ReminderInterval = 60
	if got := task.EffectiveInterval(); got != 60*time.Minute {
		t.Errorf("interval 60 should map to 60 minutes, got %v", got)
	}
}

func TestTask_Due_ZeroIntervalNeverFires(t *testing.T) {
	created := time.Now().Add(-24 * time.Hour)
	task := Task{Status: TaskStatusActive, ReminderInterval: 0, CreatedAt: created}

	if task.Due(time.Now()) {
		t.Error("interval 0 task judged due after 24h of elapsed time")
	}
}

func TestTask_Due_MonotonicUntilSend(t *testing.T) {
	created := time.Now().Add(-10 * time.Minute)
	task := Task{Status: TaskStatusActive, ReminderInterval: 5, CreatedAt: created}

	now := time.Now()
	if !task.Due(now) {
		t.Fatal("task past its interval should be due")
	}
	// Two consecutive evaluations with no send in between both judge due.
	if !task.Due(now.Add(5 * time.Second)) {
		t.Error("due-ness must persist across ticks until a send succeeds")
	}

	// A successful send moves the reference time; the task goes quiet
	// for a full interval measured from the new timestamp.
	sent := now
	task.LastRemindedAt = &sent
	if task.Due(now.Add(4 * time.Minute)) {
		t.Error("task should not be due before a full interval after the send")
	}
	if !task.Due(now.Add(5 * time.Minute)) {
		t.Error("task should be due again a full interval after the send")
	}
}

func TestTask_Due_SentinelFiresAfterFiveSeconds(t *testing.T) {
	created := time.Now()
	task := Task{Status: TaskStatusActive, ReminderInterval: 1, CreatedAt: created}

	if task.Due(created.Add(3 * time.Second)) {
		t.Error("sentinel task due after 3s")
	}
	if !task.Due(created.Add(5 * time.Second)) {
		t.Error("sentinel task should be due after 5s, not after 1 minute")
	}
}

func TestTask_DueDateLabel(t *testing.T) {
	task := Task{}
	if got := task.DueDateLabel(); got != "-" {
		t.Errorf("expected dash placeholder, got %q", got)
	}

	task.DueDate = strPtr("2024-12-31")
	if got := task.DueDateLabel(); got != "2024-12-31" {
		t.Errorf("expected date, got %q", got)
	}
}
