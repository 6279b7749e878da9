package ipc_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"reel/internal/daemon"
	"reel/internal/ipc"
	"reel/internal/logging"
	"reel/internal/queue"
	"reel/internal/stage"
	"reel/internal/testsupport"
	"reel/internal/workflow"
)

type noopStage struct{}

func (noopStage) Prepare(context.Context, *queue.Item) error { return nil }
func (noopStage) Execute(context.Context, *queue.Item) error { return nil }
func (noopStage) HealthCheck(context.Context) stage.Health {
	return stage.Healthy("noop")
}

func TestIPCServerClient(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	store := testsupport.MustOpenStore(t, cfg)
	logPath := filepath.Join(cfg.Paths.LogDir, "ipc-test.log")
	logger := logging.NewNop()
	mgr := workflow.NewManager(cfg, store, logger)
	mgr.ConfigureStages(workflow.StageSet{Acquirer: noopStage{}, Organizer: noopStage{}})
	d, err := daemon.New(cfg, store, logger, mgr, logPath)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	socket := filepath.Join(cfg.Paths.LogDir, "reel.sock")
	srv, err := ipc.NewServer(ctx, socket, d, logger)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(func() {
		srv.Close()
	})

	time.Sleep(50 * time.Millisecond)

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
	})

	startResp, err := client.Start()
	if err != nil {
		t.Fatalf("Start RPC failed: %v", err)
	}
	if !startResp.Started {
		t.Fatalf("expected Started=true, message=%s", startResp.Message)
	}

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if !status.Running {
		t.Fatal("expected daemon to be running")
	}
	if status.PID <= 0 {
		t.Fatalf("expected positive PID, got %d", status.PID)
	}
	if len(status.Dependencies) == 0 {
		t.Fatal("expected dependency statuses in status response")
	}
	if len(status.StageHealth) == 0 {
		t.Fatal("expected stage health in status response")
	}

	stopDuring, err := client.Stop()
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if !stopDuring.Stopped {
		t.Fatalf("expected Stop to report stopped, got: %#v", stopDuring)
	}

	addResp, err := client.QueueAdd("https://www.youtube.com/watch?v=abc123def45")
	if err != nil {
		t.Fatalf("QueueAdd failed: %v", err)
	}
	if !addResp.Created {
		t.Fatal("expected first add to create an item")
	}
	if addResp.Item.Status != string(queue.StatusPending) {
		t.Fatalf("expected pending item, got %s", addResp.Item.Status)
	}
	itemA := addResp.Item

	dupResp, err := client.QueueAdd("https://www.youtube.com/watch?v=abc123def45")
	if err != nil {
		t.Fatalf("QueueAdd duplicate failed: %v", err)
	}
	if dupResp.Created || dupResp.Item.ID != itemA.ID {
		t.Fatalf("expected duplicate to return item %d, got %+v", itemA.ID, dupResp)
	}

	if _, err := client.QueueAdd("https://example.com/watch?v=abc123def45"); err == nil {
		t.Fatal("expected unsupported URL to be rejected")
	}

	addB, err := client.QueueAdd("https://www.youtube.com/watch?v=bcd234efg56")
	if err != nil {
		t.Fatalf("QueueAdd B failed: %v", err)
	}
	itemB, err := store.GetByID(ctx, addB.Item.ID)
	if err != nil {
		t.Fatalf("GetByID B: %v", err)
	}
	itemB.SetFailed("acquisition failed")
	if err := store.Update(ctx, itemB); err != nil {
		t.Fatalf("Update itemB: %v", err)
	}

	addC, err := client.QueueAdd("https://youtu.be/cde345fgh67")
	if err != nil {
		t.Fatalf("QueueAdd C failed: %v", err)
	}
	itemC, err := store.GetByID(ctx, addC.Item.ID)
	if err != nil {
		t.Fatalf("GetByID C: %v", err)
	}
	itemC.Status = queue.StatusAcquiring
	if err := store.Update(ctx, itemC); err != nil {
		t.Fatalf("Update itemC: %v", err)
	}

	listResp, err := client.QueueList(nil)
	if err != nil {
		t.Fatalf("QueueList failed: %v", err)
	}
	if len(listResp.Items) != 3 {
		t.Fatalf("expected 3 queue items, got %d", len(listResp.Items))
	}

	failedResp, err := client.QueueList([]string{string(queue.StatusFailed)})
	if err != nil {
		t.Fatalf("QueueList failed filter: %v", err)
	}
	if len(failedResp.Items) != 1 || failedResp.Items[0].ID != itemB.ID {
		t.Fatalf("expected failed item %d, got %#v", itemB.ID, failedResp.Items)
	}

	descResp, err := client.QueueDescribe(itemA.ID)
	if err != nil {
		t.Fatalf("QueueDescribe failed: %v", err)
	}
	if !descResp.Found || descResp.Item.SourceURL != itemA.SourceURL {
		t.Fatalf("unexpected describe payload: %+v", descResp)
	}

	missingResp, err := client.QueueDescribe(99999)
	if err != nil {
		t.Fatalf("QueueDescribe missing failed: %v", err)
	}
	if missingResp.Found {
		t.Fatalf("expected missing item to report found=false")
	}

	resetResp, err := client.QueueReset()
	if err != nil {
		t.Fatalf("QueueReset failed: %v", err)
	}
	if resetResp.Updated != 1 {
		t.Fatalf("expected 1 item reset, got %d", resetResp.Updated)
	}
	updatedC, err := store.GetByID(ctx, itemC.ID)
	if err != nil {
		t.Fatalf("GetByID itemC: %v", err)
	}
	if updatedC.Status != queue.StatusPending {
		t.Fatalf("expected itemC to resume at pending after reset, got %s", updatedC.Status)
	}

	retryResp, err := client.QueueRetry(nil)
	if err != nil {
		t.Fatalf("QueueRetry failed: %v", err)
	}
	if retryResp.Updated != 1 {
		t.Fatalf("expected 1 retried item, got %d", retryResp.Updated)
	}

	stopItems, err := client.QueueStop([]int64{itemA.ID})
	if err != nil {
		t.Fatalf("QueueStop failed: %v", err)
	}
	if stopItems.Updated != 1 {
		t.Fatalf("expected 1 stopped item, got %d", stopItems.Updated)
	}
	stoppedA, err := client.QueueDescribe(itemA.ID)
	if err != nil {
		t.Fatalf("QueueDescribe stopped failed: %v", err)
	}
	if stoppedA.Item.Status != string(queue.StatusFailed) {
		t.Fatalf("expected stopped item to be failed, got %s", stoppedA.Item.Status)
	}
	if !queue.IsUserStopReason(stoppedA.Item.ReviewReason) {
		t.Fatalf("expected user stop reason, got %q", stoppedA.Item.ReviewReason)
	}

	clearFailedResp, err := client.QueueClearFailed()
	if err != nil {
		t.Fatalf("QueueClearFailed failed: %v", err)
	}
	if clearFailedResp.Removed != 1 {
		t.Fatalf("expected 1 failed item removed, got %d", clearFailedResp.Removed)
	}

	reloadedB, err := store.GetByID(ctx, itemB.ID)
	if err != nil {
		t.Fatalf("GetByID reloadedB: %v", err)
	}
	reloadedB.Status = queue.StatusCompleted
	if err := store.Update(ctx, reloadedB); err != nil {
		t.Fatalf("Update reloadedB: %v", err)
	}
	clearCompletedResp, err := client.QueueClearCompleted()
	if err != nil {
		t.Fatalf("QueueClearCompleted failed: %v", err)
	}
	if clearCompletedResp.Removed != 1 {
		t.Fatalf("expected 1 completed item removed, got %d", clearCompletedResp.Removed)
	}

	removeResp, err := client.QueueRemove([]int64{itemC.ID})
	if err != nil {
		t.Fatalf("QueueRemove failed: %v", err)
	}
	if removeResp.Removed != 1 {
		t.Fatalf("expected 1 item removed, got %d", removeResp.Removed)
	}

	if _, err := client.QueueAdd("https://www.youtube.com/shorts/def456ghi78"); err != nil {
		t.Fatalf("QueueAdd D failed: %v", err)
	}

	healthResp, err := client.QueueHealth()
	if err != nil {
		t.Fatalf("QueueHealth failed: %v", err)
	}
	if healthResp.Total != 1 || healthResp.Pending != 1 {
		t.Fatalf("unexpected health response: %#v", healthResp)
	}

	dbHealth, err := client.DatabaseHealth()
	if err != nil {
		t.Fatalf("DatabaseHealth failed: %v", err)
	}
	if !strings.HasSuffix(dbHealth.DBPath, "queue.db") {
		t.Fatalf("unexpected db path: %s", dbHealth.DBPath)
	}

	notifyResp, err := client.TestNotification()
	if err != nil {
		t.Fatalf("TestNotification failed: %v", err)
	}
	if notifyResp == nil || notifyResp.Message == "" {
		t.Fatalf("expected notification message, got %#v", notifyResp)
	}
	if notifyResp.Sent {
		t.Fatal("expected notification to be skipped without a topic")
	}

	if err := os.WriteFile(logPath, []byte("first\nsecond\nthird\n"), 0o644); err != nil {
		t.Fatalf("write log file: %v", err)
	}
	logResp, err := client.LogTail(ipc.LogTailRequest{Offset: -1, Limit: 2})
	if err != nil {
		t.Fatalf("LogTail initial failed: %v", err)
	}
	if len(logResp.Lines) != 2 || logResp.Lines[0] != "second" || logResp.Lines[1] != "third" {
		t.Fatalf("unexpected log tail response: %#v", logResp.Lines)
	}

	followDone := make(chan struct{})
	go func(offset int64) {
		resp, err := client.LogTail(ipc.LogTailRequest{Offset: offset, Follow: true, WaitMillis: 500})
		if err != nil {
			t.Errorf("LogTail follow error: %v", err)
			return
		}
		if len(resp.Lines) != 1 || resp.Lines[0] != "fourth" {
			t.Errorf("unexpected follow lines: %#v", resp.Lines)
		}
		close(followDone)
	}(logResp.Offset)

	time.Sleep(100 * time.Millisecond)
	if f, err := os.OpenFile(logPath, os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
		_, _ = f.WriteString("fourth\n")
		_ = f.Close()
	} else {
		t.Fatalf("append log: %v", err)
	}

	select {
	case <-followDone:
	case <-time.After(10 * time.Second):
		t.Fatal("log tail follow timed out")
	}

	clearResp, err := client.QueueClear()
	if err != nil {
		t.Fatalf("QueueClear failed: %v", err)
	}
	if clearResp.Removed != 1 {
		t.Fatalf("expected 1 item cleared, got %d", clearResp.Removed)
	}

	status2, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if status2.Running {
		t.Fatal("expected daemon to be stopped")
	}
}
