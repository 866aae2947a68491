// Package connect provides the Connect RPC control service and its client.
//
// Messages are protobuf well-known types, so no generated code is needed:
// scalars travel in wrappers, positions in durationpb, and records such as
// tracks and status snapshots in structpb.
package connect

// ServiceName is the fully-qualified name of the control service.
const ServiceName = "bragi.v1.PlayerService"

// Procedure paths.
const (
	OpenProcedure          = "/" + ServiceName + "/Open"
	OpenManyProcedure      = "/" + ServiceName + "/OpenMany"
	OpenPlaylistProcedure  = "/" + ServiceName + "/OpenPlaylist"
	PlayProcedure          = "/" + ServiceName + "/Play"
	PauseProcedure         = "/" + ServiceName + "/Pause"
	StopProcedure          = "/" + ServiceName + "/Stop"
	NextProcedure          = "/" + ServiceName + "/Next"
	PreviousProcedure      = "/" + ServiceName + "/Previous"
	ChangeTrackProcedure   = "/" + ServiceName + "/ChangeTrack"
	SeekProcedure          = "/" + ServiceName + "/Seek"
	SetVolumeProcedure     = "/" + ServiceName + "/SetVolume"
	AdjustVolumeProcedure  = "/" + ServiceName + "/AdjustVolume"
	GetVolumeProcedure     = "/" + ServiceName + "/GetVolume"
	GetPlaylistProcedure   = "/" + ServiceName + "/GetPlaylist"
	GetAlbumCoverProcedure = "/" + ServiceName + "/GetAlbumCover"
	IsPlayingProcedure     = "/" + ServiceName + "/IsPlaying"
	PlaytimeProcedure      = "/" + ServiceName + "/Playtime"
	GetStatusProcedure     = "/" + ServiceName + "/GetStatus"
	WatchProcedure         = "/" + ServiceName + "/Watch"
)

// CoverMIMETypeHeader carries the picture type of GetAlbumCover responses.
const CoverMIMETypeHeader = "X-Cover-Mime-Type"
