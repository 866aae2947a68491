package connect

import (
	"context"
	"net/http"
	"strings"
	"time"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/osa030/bragi/internal/domain/track"
)

type commandClient = *connect.Client[emptypb.Empty, emptypb.Empty]

// Client calls the control service.
type Client struct {
	open         *connect.Client[wrapperspb.StringValue, structpb.Struct]
	openMany     *connect.Client[structpb.ListValue, wrapperspb.Int32Value]
	openPlaylist *connect.Client[wrapperspb.StringValue, wrapperspb.Int32Value]
	play         commandClient
	pause        commandClient
	stop         commandClient
	next         commandClient
	previous     commandClient
	changeTrack  *connect.Client[wrapperspb.Int32Value, emptypb.Empty]
	seek         *connect.Client[durationpb.Duration, emptypb.Empty]
	setVolume    *connect.Client[wrapperspb.DoubleValue, wrapperspb.DoubleValue]
	adjustVolume *connect.Client[wrapperspb.DoubleValue, wrapperspb.DoubleValue]
	getVolume    *connect.Client[emptypb.Empty, wrapperspb.DoubleValue]
	getPlaylist  *connect.Client[emptypb.Empty, structpb.ListValue]
	getCover     *connect.Client[emptypb.Empty, wrapperspb.BytesValue]
	isPlaying    *connect.Client[emptypb.Empty, wrapperspb.BoolValue]
	playtime     *connect.Client[emptypb.Empty, durationpb.Duration]
	getStatus    *connect.Client[emptypb.Empty, structpb.Struct]
	watch        *connect.Client[emptypb.Empty, structpb.Struct]
}

// NewClient creates a client for the server at baseURL. A non-empty token
// is sent with every call.
func NewClient(httpClient connect.HTTPClient, baseURL, token string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append(opts, connect.WithInterceptors(&tokenInterceptor{token: token}))
	return &Client{
		open:         connect.NewClient[wrapperspb.StringValue, structpb.Struct](httpClient, baseURL+OpenProcedure, opts...),
		openMany:     connect.NewClient[structpb.ListValue, wrapperspb.Int32Value](httpClient, baseURL+OpenManyProcedure, opts...),
		openPlaylist: connect.NewClient[wrapperspb.StringValue, wrapperspb.Int32Value](httpClient, baseURL+OpenPlaylistProcedure, opts...),
		play:         connect.NewClient[emptypb.Empty, emptypb.Empty](httpClient, baseURL+PlayProcedure, opts...),
		pause:        connect.NewClient[emptypb.Empty, emptypb.Empty](httpClient, baseURL+PauseProcedure, opts...),
		stop:         connect.NewClient[emptypb.Empty, emptypb.Empty](httpClient, baseURL+StopProcedure, opts...),
		next:         connect.NewClient[emptypb.Empty, emptypb.Empty](httpClient, baseURL+NextProcedure, opts...),
		previous:     connect.NewClient[emptypb.Empty, emptypb.Empty](httpClient, baseURL+PreviousProcedure, opts...),
		changeTrack:  connect.NewClient[wrapperspb.Int32Value, emptypb.Empty](httpClient, baseURL+ChangeTrackProcedure, opts...),
		seek:         connect.NewClient[durationpb.Duration, emptypb.Empty](httpClient, baseURL+SeekProcedure, opts...),
		setVolume:    connect.NewClient[wrapperspb.DoubleValue, wrapperspb.DoubleValue](httpClient, baseURL+SetVolumeProcedure, opts...),
		adjustVolume: connect.NewClient[wrapperspb.DoubleValue, wrapperspb.DoubleValue](httpClient, baseURL+AdjustVolumeProcedure, opts...),
		getVolume:    connect.NewClient[emptypb.Empty, wrapperspb.DoubleValue](httpClient, baseURL+GetVolumeProcedure, opts...),
		getPlaylist:  connect.NewClient[emptypb.Empty, structpb.ListValue](httpClient, baseURL+GetPlaylistProcedure, opts...),
		getCover:     connect.NewClient[emptypb.Empty, wrapperspb.BytesValue](httpClient, baseURL+GetAlbumCoverProcedure, opts...),
		isPlaying:    connect.NewClient[emptypb.Empty, wrapperspb.BoolValue](httpClient, baseURL+IsPlayingProcedure, opts...),
		playtime:     connect.NewClient[emptypb.Empty, durationpb.Duration](httpClient, baseURL+PlaytimeProcedure, opts...),
		getStatus:    connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+GetStatusProcedure, opts...),
		watch:        connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+WatchProcedure, opts...),
	}
}

// NewDefaultClient creates a client using http.DefaultClient.
func NewDefaultClient(baseURL, token string) *Client {
	return NewClient(http.DefaultClient, baseURL, token)
}

func empty() *connect.Request[emptypb.Empty] {
	return connect.NewRequest(&emptypb.Empty{})
}

func (c *Client) Open(ctx context.Context, path string) (track.Track, error) {
	res, err := c.open.CallUnary(ctx, connect.NewRequest(wrapperspb.String(path)))
	if err != nil {
		return track.Track{}, err
	}
	return FromTrackStruct(res.Msg), nil
}

func (c *Client) OpenMany(ctx context.Context, paths []string) (int, error) {
	values := make([]*structpb.Value, 0, len(paths))
	for _, p := range paths {
		values = append(values, structpb.NewStringValue(p))
	}
	res, err := c.openMany.CallUnary(ctx, connect.NewRequest(&structpb.ListValue{Values: values}))
	if err != nil {
		return 0, err
	}
	return int(res.Msg.GetValue()), nil
}

func (c *Client) OpenPlaylist(ctx context.Context, path string) (int, error) {
	res, err := c.openPlaylist.CallUnary(ctx, connect.NewRequest(wrapperspb.String(path)))
	if err != nil {
		return 0, err
	}
	return int(res.Msg.GetValue()), nil
}

func (c *Client) Play(ctx context.Context) error {
	_, err := c.play.CallUnary(ctx, empty())
	return err
}

func (c *Client) Pause(ctx context.Context) error {
	_, err := c.pause.CallUnary(ctx, empty())
	return err
}

func (c *Client) Stop(ctx context.Context) error {
	_, err := c.stop.CallUnary(ctx, empty())
	return err
}

func (c *Client) Next(ctx context.Context) error {
	_, err := c.next.CallUnary(ctx, empty())
	return err
}

func (c *Client) Previous(ctx context.Context) error {
	_, err := c.previous.CallUnary(ctx, empty())
	return err
}

func (c *Client) ChangeTrack(ctx context.Context, index int) error {
	_, err := c.changeTrack.CallUnary(ctx, connect.NewRequest(wrapperspb.Int32(int32(index))))
	return err
}

func (c *Client) Seek(ctx context.Context, pos time.Duration) error {
	_, err := c.seek.CallUnary(ctx, connect.NewRequest(durationpb.New(pos)))
	return err
}

func (c *Client) SetVolume(ctx context.Context, level float64) (float64, error) {
	res, err := c.setVolume.CallUnary(ctx, connect.NewRequest(wrapperspb.Double(level)))
	if err != nil {
		return 0, err
	}
	return res.Msg.GetValue(), nil
}

func (c *Client) AdjustVolume(ctx context.Context, delta float64) (float64, error) {
	res, err := c.adjustVolume.CallUnary(ctx, connect.NewRequest(wrapperspb.Double(delta)))
	if err != nil {
		return 0, err
	}
	return res.Msg.GetValue(), nil
}

func (c *Client) Volume(ctx context.Context) (float64, error) {
	res, err := c.getVolume.CallUnary(ctx, empty())
	if err != nil {
		return 0, err
	}
	return res.Msg.GetValue(), nil
}

func (c *Client) Playlist(ctx context.Context) ([]track.Track, error) {
	res, err := c.getPlaylist.CallUnary(ctx, empty())
	if err != nil {
		return nil, err
	}
	return FromPlaylist(res.Msg), nil
}

func (c *Client) AlbumCover(ctx context.Context) (track.Cover, error) {
	res, err := c.getCover.CallUnary(ctx, empty())
	if err != nil {
		return track.Cover{}, err
	}
	return track.Cover{
		MIMEType: res.Header().Get(CoverMIMETypeHeader),
		Data:     res.Msg.GetValue(),
	}, nil
}

func (c *Client) IsPlaying(ctx context.Context) (bool, error) {
	res, err := c.isPlaying.CallUnary(ctx, empty())
	if err != nil {
		return false, err
	}
	return res.Msg.GetValue(), nil
}

func (c *Client) Playtime(ctx context.Context) (time.Duration, error) {
	res, err := c.playtime.CallUnary(ctx, empty())
	if err != nil {
		return 0, err
	}
	return res.Msg.AsDuration(), nil
}

// Status returns the raw status snapshot.
func (c *Client) Status(ctx context.Context) (*structpb.Struct, error) {
	res, err := c.getStatus.CallUnary(ctx, empty())
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

// Watch calls fn for each notification until the stream ends, fn returns
// an error, or ctx is done.
func (c *Client) Watch(ctx context.Context, fn func(*structpb.Struct) error) error {
	stream, err := c.watch.CallServerStream(ctx, empty())
	if err != nil {
		return err
	}
	defer stream.Close()

	for stream.Receive() {
		if err := fn(stream.Msg()); err != nil {
			return err
		}
	}
	return stream.Err()
}
