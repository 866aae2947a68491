// Package main provides the control CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	"google.golang.org/protobuf/types/known/structpb"

	apiconnect "github.com/osa030/bragi/internal/api/connect"
	"github.com/osa030/bragi/internal/domain/track"
	"github.com/osa030/bragi/internal/infra/config"
)

var (
	app    = kingpin.New("bragictl", "bragi control client")
	server = app.Flag("server", "Server address").Default("http://127.0.0.1:7420").String()
	token  = app.Flag("token", "Control token (or set "+config.EnvControlToken+" env)").Envar(config.EnvControlToken).String()

	// open command
	openCmd   = app.Command("open", "Queue audio files")
	openPaths = openCmd.Arg("path", "Audio file paths").Required().Strings()

	// load command
	loadCmd  = app.Command("load", "Queue an M3U playlist")
	loadPath = loadCmd.Arg("path", "Playlist path").Required().String()

	playCmd     = app.Command("play", "Start or resume playback")
	pauseCmd    = app.Command("pause", "Pause playback")
	stopCmd     = app.Command("stop", "Stop playback")
	nextCmd     = app.Command("next", "Skip to the next track")
	previousCmd = app.Command("previous", "Go back to the previous track").Alias("prev")

	// jump command
	jumpCmd   = app.Command("jump", "Jump to a queue index")
	jumpIndex = jumpCmd.Arg("index", "Zero-based queue index").Required().Int()

	// seek command
	seekCmd = app.Command("seek", "Seek within the current track")
	seekPos = seekCmd.Arg("position", "Position, e.g. 1m30s").Required().Duration()

	// volume command
	volumeCmd       = app.Command("volume", "Show or change the volume")
	volumeSetByUser bool
	volumeSet       = volumeCmd.Flag("set", "Set the volume").IsSetByUser(&volumeSetByUser).Float64()
	volumeAdjust    = volumeCmd.Flag("adjust", "Change the volume by a delta").Float64()

	listCmd   = app.Command("list", "Show the queue").Alias("playlist")
	statusCmd = app.Command("status", "Show playback status")

	// cover command
	coverCmd = app.Command("cover", "Save the current track's cover art")
	coverOut = coverCmd.Arg("output", "Output file (extension is added)").Default("cover").String()

	watchCmd = app.Command("watch", "Stream playback notifications")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	client := apiconnect.NewDefaultClient(*server, *token)
	ctx := context.Background()

	var err error
	switch command {
	case openCmd.FullCommand():
		err = open(ctx, client, *openPaths)
	case loadCmd.FullCommand():
		var n int
		n, err = client.OpenPlaylist(ctx, absPath(*loadPath))
		if err == nil {
			fmt.Printf("Queued %d tracks\n", n)
		}
	case playCmd.FullCommand():
		err = client.Play(ctx)
	case pauseCmd.FullCommand():
		err = client.Pause(ctx)
	case stopCmd.FullCommand():
		err = client.Stop(ctx)
	case nextCmd.FullCommand():
		err = client.Next(ctx)
	case previousCmd.FullCommand():
		err = client.Previous(ctx)
	case jumpCmd.FullCommand():
		err = client.ChangeTrack(ctx, *jumpIndex)
	case seekCmd.FullCommand():
		err = client.Seek(ctx, *seekPos)
	case volumeCmd.FullCommand():
		err = volume(ctx, client)
	case listCmd.FullCommand():
		err = list(ctx, client)
	case statusCmd.FullCommand():
		err = status(ctx, client)
	case coverCmd.FullCommand():
		err = cover(ctx, client, *coverOut)
	case watchCmd.FullCommand():
		err = watch(client)
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

// absPath resolves path against the working directory so the server
// opens the file the user meant.
func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

func open(ctx context.Context, client *apiconnect.Client, paths []string) error {
	if len(paths) == 1 {
		t, err := client.Open(ctx, absPath(paths[0]))
		if err != nil {
			return err
		}
		fmt.Printf("Queued: %s\n", formatTrack(t))
		return nil
	}

	abs := make([]string, 0, len(paths))
	for _, p := range paths {
		abs = append(abs, absPath(p))
	}
	n, err := client.OpenMany(ctx, abs)
	if err != nil {
		return err
	}
	fmt.Printf("Queued %d of %d files\n", n, len(paths))
	return nil
}

func volume(ctx context.Context, client *apiconnect.Client) error {
	var (
		v   float64
		err error
	)
	switch {
	case volumeSetByUser:
		v, err = client.SetVolume(ctx, *volumeSet)
	case *volumeAdjust != 0:
		v, err = client.AdjustVolume(ctx, *volumeAdjust)
	default:
		v, err = client.Volume(ctx)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Volume: %.2f\n", v)
	return nil
}

func list(ctx context.Context, client *apiconnect.Client) error {
	tracks, err := client.Playlist(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Queue (%d):\n", len(tracks))
	for i, t := range tracks {
		fmt.Printf("  %3d. %s\n", i, formatTrack(t))
	}
	return nil
}

func status(ctx context.Context, client *apiconnect.Client) error {
	s, err := client.Status(ctx)
	if err != nil {
		return err
	}
	f := s.GetFields()

	fmt.Println("\n=== PLAYBACK STATUS ===")
	fmt.Printf("State: %s\n", f["state"].GetStringValue())
	fmt.Printf("Queue Length: %d\n", int(f["queue_length"].GetNumberValue()))
	fmt.Printf("Volume: %.2f\n", f["volume"].GetNumberValue())
	fmt.Printf("Subscribers: %d\n", int(f["subscribers"].GetNumberValue()))

	if cur, ok := f["current_track"]; ok {
		t := apiconnect.FromTrackStruct(cur.GetStructValue())
		elapsed := time.Duration(f["playtime_seconds"].GetNumberValue() * float64(time.Second))
		fmt.Printf("\nCurrently Playing (#%d):\n", int(f["current_index"].GetNumberValue()))
		fmt.Printf("  %s\n", formatTrack(t))
		fmt.Printf("  Path: %s\n", t.Path)
		fmt.Printf("  Elapsed: %s\n", formatDuration(elapsed))
	} else {
		fmt.Println("\nNo track currently playing")
	}
	fmt.Println()
	return nil
}

func cover(ctx context.Context, client *apiconnect.Client, out string) error {
	c, err := client.AlbumCover(ctx)
	if err != nil {
		return err
	}

	if filepath.Ext(out) == "" {
		out += extensionFor(c.MIMEType)
	}
	if err := os.WriteFile(out, c.Data, 0o644); err != nil {
		return err
	}
	fmt.Printf("Saved %s (%d bytes)\n", out, len(c.Data))
	return nil
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	default:
		return ".img"
	}
}

func watch(client *apiconnect.Client) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	fmt.Println("Watching notifications (Ctrl+C to exit)...")
	err := client.Watch(ctx, func(n *structpb.Struct) error {
		printNotification(n)
		return nil
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func printNotification(n *structpb.Struct) {
	f := n.GetFields()
	seq := int(f["sequence_no"].GetNumberValue())
	typ := f["type"].GetStringValue()

	switch typ {
	case "state":
		fmt.Printf("[%d] state: %s (queue=%d volume=%.2f)\n",
			seq, f["state"].GetStringValue(), int(f["queue_length"].GetNumberValue()), f["volume"].GetNumberValue())
	case "track_changed":
		t := apiconnect.FromTrackStruct(f["track"].GetStructValue())
		fmt.Printf("[%d] now playing #%d: %s\n", seq, int(f["index"].GetNumberValue()), formatTrack(t))
	case "volume_updated":
		fmt.Printf("[%d] volume: %.2f\n", seq, f["volume"].GetNumberValue())
	case "queue_updated":
		fmt.Printf("[%d] queue: %d tracks\n", seq, int(f["queue_length"].GetNumberValue()))
	default:
		fmt.Printf("[%d] %s\n", seq, typ)
	}
}

func formatTrack(t track.Track) string {
	s := t.Title
	if t.HasArtist() {
		s = t.Artist + " - " + s
	}
	if t.HasAlbum() {
		s += " [" + t.Album + "]"
	}
	if t.HasLength() {
		s += " (" + formatDuration(t.Length) + ")"
	}
	return s
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
