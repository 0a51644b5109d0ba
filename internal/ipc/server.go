package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"log/slog"

	"tome/internal/api"
	"tome/internal/catalog"
	"tome/internal/daemon"
	"tome/internal/logging"
	"tome/internal/logs"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Tome", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually or rerun tome daemon stop"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String(logging.FieldComponent, "ipc"))
}

func (s *service) Start(_ StartRequest, resp *StartResponse) error {
	s.log().Debug("daemon start requested")
	if err := s.daemon.Start(s.ctx); err != nil {
		resp.Started = false
		resp.Message = err.Error()
		return nil
	}
	resp.Started = true
	resp.Message = "daemon started"
	s.log().Info("daemon started via IPC",
		logging.String(logging.FieldEventType, "daemon_start"))
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.log().Debug("daemon stop requested")
	s.daemon.Stop()
	resp.Stopped = true
	s.log().Info("daemon stopped via IPC",
		logging.String(logging.FieldEventType, "daemon_stop"))
	return nil
}

func (s *service) DaemonStatus(_ DaemonStatusRequest, resp *DaemonStatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.CatalogPath = status.CatalogPath
	resp.LockPath = status.LockFilePath
	resp.PID = status.PID
	resp.QueueStats = api.MergeQueueStats(status.Workflow.QueueStats)
	resp.LastError = status.Workflow.LastError
	if status.Workflow.LastDocument != nil {
		doc := api.FromDocument(status.Workflow.LastDocument)
		resp.LastDocument = &doc
	}
	resp.StageHealth = api.StageHealthSlice(status.Workflow.StageHealth)
	if len(status.Dependencies) > 0 {
		resp.Dependencies = make([]DependencyStatus, 0, len(status.Dependencies))
		for _, dep := range status.Dependencies {
			resp.Dependencies = append(resp.Dependencies, DependencyStatus{
				Name:        dep.Name,
				Command:     dep.Command,
				Description: dep.Description,
				Optional:    dep.Optional,
				Available:   dep.Available,
				Detail:      dep.Detail,
			})
		}
	}
	return nil
}

func (s *service) Submit(req SubmitRequest, resp *SubmitResponse) error {
	s.log().Debug("document submit requested", logging.String("source_path", req.SourcePath))
	result, err := s.daemon.Submit(s.ctx, req.SourcePath, req.Title)
	if err != nil {
		return err
	}
	resp.Document = api.FromDocument(result.Document)
	resp.Outcome = string(result.Outcome)
	return nil
}

func (s *service) Status(req DocumentStatusRequest, resp *DocumentStatusResponse) error {
	if req.ID <= 0 {
		return fmt.Errorf("invalid document id %d", req.ID)
	}
	doc, err := s.daemon.DescribeDocument(s.ctx, req.ID)
	if err != nil {
		return err
	}
	if doc == nil {
		return fmt.Errorf("document %d not found", req.ID)
	}
	resp.ID = doc.ID
	resp.Title = doc.Title
	resp.Status = doc.Status
	resp.Stages = doc.Stages
	return nil
}

func (s *service) List(req ListRequest, resp *ListResponse) error {
	statuses := make([]catalog.Status, 0, len(req.Statuses))
	for _, status := range req.Statuses {
		parsed, ok := catalog.ParseStatus(status)
		if !ok {
			continue
		}
		statuses = append(statuses, parsed)
	}
	docs, err := s.daemon.ListDocuments(s.ctx, statuses)
	if err != nil {
		return err
	}
	resp.Documents = api.FromDocuments(docs)
	return nil
}

func (s *service) Describe(req DescribeRequest, resp *DescribeResponse) error {
	if req.ID <= 0 {
		return fmt.Errorf("invalid document id %d", req.ID)
	}
	doc, err := s.daemon.DescribeDocument(s.ctx, req.ID)
	if err != nil {
		return err
	}
	if doc == nil {
		return fmt.Errorf("document %d not found", req.ID)
	}
	resp.Document = *doc
	return nil
}

func (s *service) Retry(req RetryRequest, resp *RetryResponse) error {
	s.log().Debug("document retry requested", logging.Int("document_count", len(req.IDs)))
	updated, err := s.daemon.RetryFailed(s.ctx, req.IDs)
	if err != nil {
		return err
	}
	resp.Updated = updated
	s.log().Info("failed documents retried",
		logging.String(logging.FieldEventType, "documents_retried"),
		logging.Int64("updated_count", updated))
	return nil
}

func (s *service) Remove(req RemoveRequest, resp *RemoveResponse) error {
	if len(req.IDs) == 0 {
		return errors.New("remove requires at least one id")
	}
	s.log().Debug("document remove requested", logging.Int("document_count", len(req.IDs)))
	removed, err := s.daemon.RemoveDocuments(s.ctx, req.IDs)
	if err != nil {
		return err
	}
	resp.Removed = removed
	s.log().Info("documents removed",
		logging.String(logging.FieldEventType, "documents_removed"),
		logging.Int64("removed_count", removed))
	return nil
}

func (s *service) Clear(_ ClearRequest, resp *ClearResponse) error {
	s.log().Debug("catalog clear requested")
	removed, err := s.daemon.ClearCatalog(s.ctx)
	if err != nil {
		return err
	}
	resp.Removed = removed
	s.log().Info("catalog cleared",
		logging.String(logging.FieldEventType, "catalog_clear"),
		logging.Int64("removed_count", removed))
	return nil
}

func (s *service) ClearCompleted(_ ClearCompletedRequest, resp *ClearCompletedResponse) error {
	s.log().Debug("catalog clear completed requested")
	removed, err := s.daemon.ClearCompleted(s.ctx)
	if err != nil {
		return err
	}
	resp.Removed = removed
	s.log().Info("completed documents cleared",
		logging.String(logging.FieldEventType, "catalog_clear_completed"),
		logging.Int64("removed_count", removed))
	return nil
}

func (s *service) ClearFailed(_ ClearFailedRequest, resp *ClearFailedResponse) error {
	s.log().Debug("catalog clear failed requested")
	removed, err := s.daemon.ClearFailed(s.ctx)
	if err != nil {
		return err
	}
	resp.Removed = removed
	s.log().Info("failed documents cleared",
		logging.String(logging.FieldEventType, "catalog_clear_failed"),
		logging.Int64("removed_count", removed))
	return nil
}

func (s *service) Sweep(_ SweepRequest, resp *SweepResponse) error {
	s.log().Debug("catalog sweep requested")
	result, err := s.daemon.Sweep(s.ctx)
	if err != nil {
		return err
	}
	resp.DocumentsReclaimed = result.DocumentsReclaimed
	resp.LocksExpired = result.LocksExpired
	resp.WorkspacesRemoved = result.WorkspacesRemoved
	resp.AlertsPurged = result.AlertsPurged
	return nil
}

func (s *service) Alerts(req AlertsRequest, resp *AlertsResponse) error {
	alerts, err := s.daemon.Alerts(s.ctx, req.Status, req.Limit)
	if err != nil {
		return err
	}
	resp.Alerts = api.FromAlerts(alerts)
	return nil
}

func (s *service) Search(req SearchRequest, resp *SearchResponse) error {
	if len(req.Terms) == 0 {
		return errors.New("search requires at least one term")
	}
	hits, err := s.daemon.Search(s.ctx, req.Terms, req.Limit)
	if err != nil {
		return err
	}
	resp.Hits = api.FromSearchHits(hits)
	return nil
}

func (s *service) CatalogHealth(_ CatalogHealthRequest, resp *CatalogHealthResponse) error {
	health, err := s.daemon.CatalogHealth(s.ctx)
	if err != nil {
		return err
	}
	resp.Total = health.Total
	resp.Pending = health.Pending
	resp.Processing = health.Processing
	resp.Completed = health.Completed
	resp.Failed = health.Failed
	return nil
}

func (s *service) DatabaseHealth(_ DatabaseHealthRequest, resp *DatabaseHealthResponse) error {
	health, err := s.daemon.DatabaseHealth(s.ctx)
	if err != nil && health.Error == "" {
		return err
	}
	resp.DBPath = health.DBPath
	resp.DatabaseExists = health.DatabaseExists
	resp.DatabaseReadable = health.DatabaseReadable
	resp.SchemaVersion = health.SchemaVersion
	resp.TableExists = health.TableExists
	resp.ColumnsPresent = append(resp.ColumnsPresent, health.ColumnsPresent...)
	resp.MissingColumns = append(resp.MissingColumns, health.MissingColumns...)
	resp.IntegrityCheck = health.IntegrityCheck
	resp.TotalDocuments = health.TotalDocuments
	resp.Error = health.Error
	if err != nil {
		return err
	}
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	logPath := s.daemon.LogPath()
	if logPath == "" {
		resp.Offset = 0
		return nil
	}
	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if wait <= 0 && req.Follow {
		wait = time.Second
	}
	options := logs.TailOptions{
		Offset: req.Offset,
		Limit:  req.Limit,
		Follow: req.Follow,
		Wait:   wait,
	}
	ctx := s.ctx
	if req.Follow && wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait+500*time.Millisecond)
		defer cancel()
	}
	result, err := logs.Tail(ctx, logPath, options)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			resp.Offset = result.Offset
			return nil
		}
		return err
	}
	resp.Lines = result.Lines
	resp.Offset = result.Offset
	return nil
}
