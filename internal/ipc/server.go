package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"casebook/internal/assets"
	"casebook/internal/daemon"
	"casebook/internal/logging"
	"casebook/internal/logs"
	"casebook/internal/services"
)

// ServiceName is the net/rpc service the daemon registers.
const ServiceName = "Casebook"

// maxEventWait caps a single long-poll so idle connections are recycled.
const maxEventWait = 30 * time.Second

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

	serverCtx, cancel := context.WithCancel(ctx)
	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logging.NewComponentLogger(logger, "ipc"), ctx: serverCtx}
	if err := rpcServer.RegisterName(ServiceName, srv); err != nil {
		cancel()
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	return &Server{
		path:      path,
		daemon:    d,
		logger:    logging.NewComponentLogger(logger, "ipc"),
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the server is closed.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				if s.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
					return
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"))
				continue
			}
			go s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(conn))
		}
	}()
}

// Close stops the server and removes the socket file. In-flight long polls
// end when their context is canceled.
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
			logging.String(logging.FieldErrorHint, "remove the socket file manually or rerun casebook stop"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func newRequestID() string {
	return uuid.NewString()
}

// call derives a per-request context carrying a correlation id.
func (s *service) call() (context.Context, *slog.Logger) {
	ctx := services.WithRequestID(s.ctx, newRequestID())
	return ctx, logging.WithContext(ctx, s.logger)
}

func (s *service) Start(_ StartRequest, resp *StartResponse) error {
	s.logger.Debug("daemon start requested")
	if err := s.daemon.Start(s.ctx); err != nil {
		resp.Started = false
		resp.Message = err.Error()
		return nil
	}
	resp.Started = true
	resp.Message = "daemon started"
	s.logger.Info("daemon started via IPC",
		logging.String(logging.FieldEventType, "daemon_start"))
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.logger.Debug("daemon stop requested")
	s.daemon.Stop()
	resp.Stopped = true
	s.logger.Info("daemon stopped via IPC",
		logging.String(logging.FieldEventType, "daemon_stop"))
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status()
	resp.Running = status.Running
	resp.PID = status.PID
	resp.StartedAt = status.StartedAt
	resp.Watch = status.Watch
	resp.StorePath = status.StorePath
	resp.LockPath = status.LockFilePath
	resp.LogPath = status.LogPath
	resp.NtfyEnabled = status.NtfyEnabled
	resp.EventSequence = status.EventSequence
	return nil
}

func (s *service) Watch(req WatchRequest, resp *WatchResponse) error {
	ctx, logger := s.call()
	status, err := s.daemon.WatchProject(ctx, req.ProjectRoot)
	resp.Status = status
	if err != nil {
		return err
	}
	logger.Info("watch requested via IPC",
		logging.String(logging.FieldEventType, "ipc_watch"),
		logging.String(logging.FieldProjectRoot, status.ProjectRoot))
	return nil
}

func (s *service) Unwatch(_ UnwatchRequest, resp *UnwatchResponse) error {
	resp.Status = s.daemon.StopWatching()
	return nil
}

func (s *service) AssetList(req AssetListRequest, resp *AssetListResponse) error {
	all := s.daemon.Assets()
	if req.Category == "" {
		resp.Assets = all
		return nil
	}
	category, ok := assets.ParseCategory(req.Category)
	if !ok {
		return services.Wrap(services.ErrInvalidCategory, "ipc", "list assets", req.Category, nil)
	}
	resp.Assets = make([]assets.Descriptor, 0, len(all))
	for _, d := range all {
		if d.Category == category {
			resp.Assets = append(resp.Assets, d)
		}
	}
	return nil
}

func (s *service) AssetDescribe(req AssetDescribeRequest, resp *AssetDescribeResponse) error {
	desc, ok := s.daemon.Asset(req.Key)
	if !ok {
		return services.Wrap(services.ErrNotFound, "ipc", "describe asset", req.Key, nil)
	}
	resp.Asset = desc
	return nil
}

func (s *service) Rescan(_ RescanRequest, resp *RescanResponse) error {
	ctx, logger := s.call()
	result, err := s.daemon.Rescan(ctx)
	if err != nil {
		return err
	}
	resp.Added = result.Diff.Added
	resp.Removed = result.Diff.Removed
	resp.Skipped = result.Skipped
	resp.Tracked = result.Tracked
	logger.Info("rescan completed via IPC",
		logging.String(logging.FieldEventType, "ipc_rescan"),
		logging.Int("added", len(result.Diff.Added)),
		logging.Int("removed", len(result.Diff.Removed)))
	return nil
}

func (s *service) Import(req ImportRequest, resp *ImportResponse) error {
	ctx, _ := s.call()
	result, err := s.daemon.Import(ctx, req.Files, req.ProjectRoot)
	if err != nil {
		return err
	}
	resp.Result = result
	return nil
}

func (s *service) Set(req SetRequest, resp *SetResponse) error {
	ctx, _ := s.call()
	desc, found, err := s.daemon.SetOverride(ctx, req.RelativePath, req.Override)
	if err != nil {
		return err
	}
	resp.Asset = desc
	resp.Found = found
	return nil
}

func (s *service) Events(req EventsRequest, resp *EventsResponse) error {
	wait := min(time.Duration(req.WaitMillis)*time.Millisecond, maxEventWait)
	events, next, err := s.daemon.Events(s.ctx, req.Since, req.Limit, wait)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	resp.Events = events
	resp.Next = next
	resp.Oldest = s.daemon.OldestEvent()
	return nil
}

func (s *service) Projects(_ ProjectsRequest, resp *ProjectsResponse) error {
	projects, err := s.daemon.Projects(s.ctx)
	if err != nil {
		return err
	}
	resp.Projects = make([]Project, 0, len(projects))
	for _, p := range projects {
		resp.Projects = append(resp.Projects, Project{
			Root:         p.Root,
			LastOpenedAt: p.LastOpenedAt,
			Assets:       p.Assets,
			Overrides:    p.Overrides,
		})
	}
	return nil
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
	ctx := s.ctx
	if req.Follow && wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait+500*time.Millisecond)
		defer cancel()
	}
	result, err := logs.Tail(ctx, logPath, logs.TailOptions{
		Offset: req.Offset,
		Limit:  req.Limit,
		Follow: req.Follow,
		Wait:   wait,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			resp.Offset = result.Offset
			return nil
		}
		return err
	}
	resp.Lines = result.Lines
	resp.Offset = result.Offset
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}
