package connect

import (
	"context"
	"net/http"
	"os"
	"time"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/osa030/bragi/internal/app/notification"
	"github.com/osa030/bragi/internal/app/playback"
	"github.com/osa030/bragi/internal/app/session"
	"github.com/osa030/bragi/internal/domain/track"
	"github.com/osa030/bragi/internal/infra/metadata"
)

// Player is the session surface the service exposes.
type Player interface {
	Open(ctx context.Context, path string) (track.Track, error)
	OpenMany(ctx context.Context, paths []string) (int, error)
	OpenPlaylist(ctx context.Context, path string) (int, error)
	Play()
	Pause()
	Stop()
	Next()
	Previous()
	ChangeTrack(index int) error
	Seek(pos time.Duration) error
	SetVolume(level float64)
	AdjustVolume(delta float64) float64
	Volume() float64
	Playlist() []track.Track
	AlbumCover() (track.Cover, error)
	IsPlaying() bool
	Playtime() time.Duration
	GetStatus() *session.Status
	Subscribe() *notification.Subscription
	Unsubscribe(id string)
	Done() <-chan struct{}
}

var _ Player = (*session.Manager)(nil)

// PlayerService implements the control service.
type PlayerService struct {
	player Player
}

// NewPlayerService creates a new PlayerService.
func NewPlayerService(player Player) *PlayerService {
	return &PlayerService{player: player}
}

// NewPlayerServiceHandler builds an HTTP handler for every procedure and
// returns the path prefix to mount it on.
func NewPlayerServiceHandler(svc *PlayerService, opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(OpenProcedure, connect.NewUnaryHandler(OpenProcedure, svc.Open, opts...))
	mux.Handle(OpenManyProcedure, connect.NewUnaryHandler(OpenManyProcedure, svc.OpenMany, opts...))
	mux.Handle(OpenPlaylistProcedure, connect.NewUnaryHandler(OpenPlaylistProcedure, svc.OpenPlaylist, opts...))
	mux.Handle(PlayProcedure, connect.NewUnaryHandler(PlayProcedure, svc.command(svc.player.Play), opts...))
	mux.Handle(PauseProcedure, connect.NewUnaryHandler(PauseProcedure, svc.command(svc.player.Pause), opts...))
	mux.Handle(StopProcedure, connect.NewUnaryHandler(StopProcedure, svc.command(svc.player.Stop), opts...))
	mux.Handle(NextProcedure, connect.NewUnaryHandler(NextProcedure, svc.command(svc.player.Next), opts...))
	mux.Handle(PreviousProcedure, connect.NewUnaryHandler(PreviousProcedure, svc.command(svc.player.Previous), opts...))
	mux.Handle(ChangeTrackProcedure, connect.NewUnaryHandler(ChangeTrackProcedure, svc.ChangeTrack, opts...))
	mux.Handle(SeekProcedure, connect.NewUnaryHandler(SeekProcedure, svc.Seek, opts...))
	mux.Handle(SetVolumeProcedure, connect.NewUnaryHandler(SetVolumeProcedure, svc.SetVolume, opts...))
	mux.Handle(AdjustVolumeProcedure, connect.NewUnaryHandler(AdjustVolumeProcedure, svc.AdjustVolume, opts...))
	mux.Handle(GetVolumeProcedure, connect.NewUnaryHandler(GetVolumeProcedure, svc.GetVolume, opts...))
	mux.Handle(GetPlaylistProcedure, connect.NewUnaryHandler(GetPlaylistProcedure, svc.GetPlaylist, opts...))
	mux.Handle(GetAlbumCoverProcedure, connect.NewUnaryHandler(GetAlbumCoverProcedure, svc.GetAlbumCover, opts...))
	mux.Handle(IsPlayingProcedure, connect.NewUnaryHandler(IsPlayingProcedure, svc.IsPlaying, opts...))
	mux.Handle(PlaytimeProcedure, connect.NewUnaryHandler(PlaytimeProcedure, svc.Playtime, opts...))
	mux.Handle(GetStatusProcedure, connect.NewUnaryHandler(GetStatusProcedure, svc.GetStatus, opts...))
	mux.Handle(WatchProcedure, connect.NewServerStreamHandler(WatchProcedure, svc.Watch, opts...))
	return "/" + ServiceName + "/", mux
}

// Open adds a file to the queue.
func (s *PlayerService) Open(
	ctx context.Context,
	req *connect.Request[wrapperspb.StringValue],
) (*connect.Response[structpb.Struct], error) {
	path := req.Msg.GetValue()
	if path == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("path is required"))
	}
	t, err := s.player.Open(ctx, path)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(toTrackStruct(t)), nil
}

// OpenMany adds files to the queue. Files that fail are reported in the
// error details while the rest stay queued.
func (s *PlayerService) OpenMany(
	ctx context.Context,
	req *connect.Request[structpb.ListValue],
) (*connect.Response[wrapperspb.Int32Value], error) {
	var paths []string
	for _, v := range req.Msg.GetValues() {
		if p := v.GetStringValue(); p != "" {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("at least one path is required"))
	}
	return s.added(s.player.OpenMany(ctx, paths))
}

// OpenPlaylist adds every entry of an M3U playlist to the queue.
func (s *PlayerService) OpenPlaylist(
	ctx context.Context,
	req *connect.Request[wrapperspb.StringValue],
) (*connect.Response[wrapperspb.Int32Value], error) {
	path := req.Msg.GetValue()
	if path == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("path is required"))
	}
	return s.added(s.player.OpenPlaylist(ctx, path))
}

func (s *PlayerService) added(n int, err error) (*connect.Response[wrapperspb.Int32Value], error) {
	if err != nil {
		if n == 0 {
			return nil, toConnectError(err)
		}
		zlog.Warn().Err(err).Msgf("partially opened: added=%d", n)
	}
	return connect.NewResponse(wrapperspb.Int32(int32(n))), nil
}

func (s *PlayerService) command(fn func()) func(context.Context, *connect.Request[emptypb.Empty]) (*connect.Response[emptypb.Empty], error) {
	return func(context.Context, *connect.Request[emptypb.Empty]) (*connect.Response[emptypb.Empty], error) {
		fn()
		return connect.NewResponse(&emptypb.Empty{}), nil
	}
}

// ChangeTrack jumps to a queue index.
func (s *PlayerService) ChangeTrack(
	_ context.Context,
	req *connect.Request[wrapperspb.Int32Value],
) (*connect.Response[emptypb.Empty], error) {
	if err := s.player.ChangeTrack(int(req.Msg.GetValue())); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&emptypb.Empty{}), nil
}

// Seek moves the current track to a position.
func (s *PlayerService) Seek(
	_ context.Context,
	req *connect.Request[durationpb.Duration],
) (*connect.Response[emptypb.Empty], error) {
	if err := req.Msg.CheckValid(); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	if err := s.player.Seek(req.Msg.AsDuration()); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&emptypb.Empty{}), nil
}

// SetVolume sets the volume and returns the clamped level.
func (s *PlayerService) SetVolume(
	_ context.Context,
	req *connect.Request[wrapperspb.DoubleValue],
) (*connect.Response[wrapperspb.DoubleValue], error) {
	s.player.SetVolume(req.Msg.GetValue())
	return connect.NewResponse(wrapperspb.Double(s.player.Volume())), nil
}

// AdjustVolume changes the volume by a delta and returns the new level.
func (s *PlayerService) AdjustVolume(
	_ context.Context,
	req *connect.Request[wrapperspb.DoubleValue],
) (*connect.Response[wrapperspb.DoubleValue], error) {
	return connect.NewResponse(wrapperspb.Double(s.player.AdjustVolume(req.Msg.GetValue()))), nil
}

// GetVolume returns the volume.
func (s *PlayerService) GetVolume(
	context.Context,
	*connect.Request[emptypb.Empty],
) (*connect.Response[wrapperspb.DoubleValue], error) {
	return connect.NewResponse(wrapperspb.Double(s.player.Volume())), nil
}

// GetPlaylist returns the queue contents.
func (s *PlayerService) GetPlaylist(
	context.Context,
	*connect.Request[emptypb.Empty],
) (*connect.Response[structpb.ListValue], error) {
	return connect.NewResponse(toPlaylist(s.player.Playlist())), nil
}

// GetAlbumCover returns the current track's embedded picture. The picture
// type is carried in a response header.
func (s *PlayerService) GetAlbumCover(
	context.Context,
	*connect.Request[emptypb.Empty],
) (*connect.Response[wrapperspb.BytesValue], error) {
	cover, err := s.player.AlbumCover()
	if err != nil {
		return nil, toConnectError(err)
	}
	res := connect.NewResponse(wrapperspb.Bytes(cover.Data))
	res.Header().Set(CoverMIMETypeHeader, cover.MIMEType)
	return res, nil
}

// IsPlaying reports whether the queue is being played.
func (s *PlayerService) IsPlaying(
	context.Context,
	*connect.Request[emptypb.Empty],
) (*connect.Response[wrapperspb.BoolValue], error) {
	return connect.NewResponse(wrapperspb.Bool(s.player.IsPlaying())), nil
}

// Playtime returns the elapsed time of the current track.
func (s *PlayerService) Playtime(
	context.Context,
	*connect.Request[emptypb.Empty],
) (*connect.Response[durationpb.Duration], error) {
	return connect.NewResponse(durationpb.New(s.player.Playtime())), nil
}

// GetStatus returns a status snapshot.
func (s *PlayerService) GetStatus(
	context.Context,
	*connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	return connect.NewResponse(toStatusStruct(s.player.GetStatus())), nil
}

// Watch streams notifications until the client goes away or the session
// ends. The first message is a state snapshot.
func (s *PlayerService) Watch(
	ctx context.Context,
	_ *connect.Request[emptypb.Empty],
	stream *connect.ServerStream[structpb.Struct],
) error {
	sub := s.player.Subscribe()
	defer s.player.Unsubscribe(sub.ID)

	zlog.Debug().Msgf("watch started: subscription=%s", sub.ID)
	defer func() {
		zlog.Debug().Msgf("watch ended: subscription=%s dropped=%d", sub.ID, sub.Dropped())
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.player.Done():
			return nil
		case n, ok := <-sub.C:
			if !ok {
				return nil
			}
			if err := stream.Send(toNotificationStruct(n)); err != nil {
				return errors.Wrap(err, "failed to send notification")
			}
		}
	}
}

// toConnectError maps domain errors onto connect codes.
func toConnectError(err error) error {
	var code connect.Code
	switch {
	case errors.Is(err, playback.ErrInvalidIndex):
		code = connect.CodeInvalidArgument
	case errors.Is(err, playback.ErrNoCurrentTrack),
		errors.Is(err, metadata.ErrNoCover),
		errors.Is(err, os.ErrNotExist):
		code = connect.CodeNotFound
	case errors.Is(err, playback.ErrSeek),
		errors.Is(err, session.ErrRejected):
		code = connect.CodeFailedPrecondition
	case errors.Is(err, session.ErrClosed):
		code = connect.CodeUnavailable
	default:
		code = connect.CodeInternal
	}
	return connect.NewError(code, err)
}
