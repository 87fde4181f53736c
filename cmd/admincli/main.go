// Package main provides the admin CLI for venue staff: queue
// management and playback control over the sync channel.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/venuekit/venuebox/internal/channel"
	"github.com/venuekit/venuebox/internal/domain/track"
	"github.com/venuekit/venuebox/internal/infra/wschannel"
)

var (
	app     = kingpin.New("venuebox-admin", "venuebox staff remote control")
	server  = app.Flag("server", "Player address").Default("http://localhost:8080").String()
	session = app.Flag("session", "Session ID").Default("default").String()

	playCmd   = app.Command("play", "Start or resume playback")
	pauseCmd  = app.Command("pause", "Pause playback")
	resumeCmd = app.Command("resume", "Resume paused playback")
	skipCmd   = app.Command("skip", "Skip to the next track")

	playAtCmd   = app.Command("play-at", "Play the active queue entry at an index")
	playAtIndex = playAtCmd.Arg("index", "Active queue index").Required().Int()

	volumeCmd = app.Command("volume", "Set the playback volume")
	volumeVal = volumeCmd.Arg("volume", "Volume 0.0-1.0").Required().Float64()

	seekCmd = app.Command("seek", "Seek within the current track")
	seekPos = seekCmd.Arg("seconds", "Absolute position in seconds").Required().Float64()

	shuffleCmd  = app.Command("shuffle", "Shuffle the active queue")
	shuffleKeep = shuffleCmd.Flag("keep-current", "Pin the current track to the head").Default("true").Bool()

	moveCmd  = app.Command("move", "Move an active queue entry")
	moveFrom = moveCmd.Arg("from", "Source index").Required().Int()
	moveTo   = moveCmd.Arg("to", "Destination index").Required().Int()

	removeCmd     = app.Command("remove", "Remove a queue entry by track ID")
	removeTrackID = removeCmd.Arg("track-id", "Track ID").Required().String()
	removeQueue   = removeCmd.Flag("queue", "Queue name (active or priority)").Default("active").String()

	clearCmd   = app.Command("clear", "Clear a queue")
	clearQueue = clearCmd.Arg("queue", "Queue name (active or priority)").Required().String()

	loadCmd     = app.Command("load", "Load a playlist into a queue")
	loadLocator = loadCmd.Arg("locator", "Playlist URL, URI, or ID").Required().String()
	loadQueue   = loadCmd.Flag("queue", "Queue name (active or priority)").Default("active").String()
)

func main() {
	_ = godotenv.Load()
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	typ, payload := buildCommand(command)

	ctx := context.Background()
	peerID := "admin-" + uuid.NewString()[:8]
	client, err := wschannel.Dial(ctx, *server, *session, peerID)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	cmd, err := channel.NewCommand(typ, peerID, payload)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	aw := channel.NewAwaiter(client, channel.DefaultAwaitTimeout)
	defer aw.Close()

	res, err := aw.Do(ctx, cmd)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if res.Success {
		fmt.Println("OK")
	} else {
		fmt.Printf("Rejected [%s]: %s\n", res.Code, res.Error)
		os.Exit(1)
	}
}

func buildCommand(command string) (channel.Type, any) {
	switch command {
	case playCmd.FullCommand():
		return channel.TypePlay, nil
	case pauseCmd.FullCommand():
		return channel.TypePause, nil
	case resumeCmd.FullCommand():
		return channel.TypeResume, nil
	case skipCmd.FullCommand():
		return channel.TypeSkip, nil
	case playAtCmd.FullCommand():
		return channel.TypePlayAt, channel.PlayAtPayload{Index: *playAtIndex}
	case volumeCmd.FullCommand():
		return channel.TypeSetVolume, channel.SetVolumePayload{Volume: *volumeVal}
	case seekCmd.FullCommand():
		return channel.TypeSeekTo, channel.SeekToPayload{Seconds: *seekPos}
	case shuffleCmd.FullCommand():
		return channel.TypeQueueShuffle, channel.QueueShufflePayload{KeepCurrent: *shuffleKeep}
	case moveCmd.FullCommand():
		return channel.TypeQueueMove, channel.QueueMovePayload{From: *moveFrom, To: *moveTo}
	case removeCmd.FullCommand():
		return channel.TypeQueueRemove, channel.QueueRemovePayload{
			TrackID: *removeTrackID,
			Queue:   track.QueueType(*removeQueue),
		}
	case clearCmd.FullCommand():
		return channel.TypeQueueClear, channel.QueueClearPayload{Queue: track.QueueType(*clearQueue)}
	case loadCmd.FullCommand():
		return channel.TypeLoadPlaylist, channel.LoadPlaylistPayload{
			Locator: *loadLocator,
			Queue:   track.QueueType(*loadQueue),
		}
	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
		return "", nil
	}
}
