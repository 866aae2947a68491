package connect

import (
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/osa030/bragi/internal/app/notification"
	"github.com/osa030/bragi/internal/app/session"
	"github.com/osa030/bragi/internal/domain/track"
)

func trackToMap(t track.Track) map[string]any {
	return map[string]any{
		"title":   t.Title,
		"artist":  t.Artist,
		"album":   t.Album,
		"path":    t.Path,
		"seconds": t.Seconds(),
	}
}

func toTrackStruct(t track.Track) *structpb.Struct {
	s, _ := structpb.NewStruct(trackToMap(t))
	return s
}

// FromTrackStruct converts a wire track back into the domain type.
func FromTrackStruct(s *structpb.Struct) track.Track {
	f := s.GetFields()
	return track.Track{
		Title:  f["title"].GetStringValue(),
		Artist: f["artist"].GetStringValue(),
		Album:  f["album"].GetStringValue(),
		Path:   f["path"].GetStringValue(),
		Length: secondsToDuration(f["seconds"].GetNumberValue()),
	}
}

func toPlaylist(tracks []track.Track) *structpb.ListValue {
	values := make([]*structpb.Value, 0, len(tracks))
	for _, t := range tracks {
		values = append(values, structpb.NewStructValue(toTrackStruct(t)))
	}
	return &structpb.ListValue{Values: values}
}

// FromPlaylist converts a wire playlist back into tracks.
func FromPlaylist(l *structpb.ListValue) []track.Track {
	tracks := make([]track.Track, 0, len(l.GetValues()))
	for _, v := range l.GetValues() {
		tracks = append(tracks, FromTrackStruct(v.GetStructValue()))
	}
	return tracks
}

func toStatusStruct(st *session.Status) *structpb.Struct {
	m := map[string]any{
		"state":            st.State.String(),
		"is_playing":       st.IsPlaying,
		"playtime_seconds": st.Playtime.Seconds(),
		"current_index":    st.CurrentIndex,
		"queue_length":     st.QueueLength,
		"volume":           st.Volume,
		"subscribers":      st.SubscriberCount,
	}
	if st.CurrentTrack != nil {
		m["current_track"] = trackToMap(*st.CurrentTrack)
	}
	s, _ := structpb.NewStruct(m)
	return s
}

func toNotificationStruct(n *notification.Notification) *structpb.Struct {
	m := map[string]any{
		"sequence_no": float64(n.SequenceNo),
		"type":        string(n.Type),
		"time":        n.Time.UTC().Format(time.RFC3339Nano),
	}
	switch n.Type {
	case notification.TypeState:
		m["state"] = n.State
		m["index"] = n.Index
		m["volume"] = n.Volume
		m["playtime_seconds"] = n.Playtime.Seconds()
		m["queue_length"] = n.QueueLength
	case notification.TypeTrackChanged:
		m["index"] = n.Index
	case notification.TypeVolumeUpdated:
		m["volume"] = n.Volume
	case notification.TypeQueueUpdated:
		m["queue_length"] = n.QueueLength
	}
	if n.Track != nil {
		m["track"] = trackToMap(*n.Track)
	}
	s, _ := structpb.NewStruct(m)
	return s
}

func secondsToDuration(sec float64) time.Duration {
	return time.Duration(sec * float64(time.Second))
}
