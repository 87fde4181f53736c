// Package main provides the kiosk CLI: the guest-facing remote that
// requests tracks and watches the player state.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/venuekit/venuebox/internal/channel"
	"github.com/venuekit/venuebox/internal/domain/track"
	"github.com/venuekit/venuebox/internal/infra/wschannel"
)

var (
	app     = kingpin.New("venuebox-kiosk", "venuebox guest kiosk client")
	server  = app.Flag("server", "Player address").Default("http://localhost:8080").String()
	session = app.Flag("session", "Session ID").Default("default").String()
	peer    = app.Flag("peer", "Peer ID (default: generated)").String()

	// request command
	requestCmd      = app.Command("request", "Request a track (priority queue)")
	requestTrackID  = requestCmd.Arg("track-id", "Track ID").Required().String()
	requestTitle    = requestCmd.Flag("title", "Track title").String()
	requestArtist   = requestCmd.Flag("artist", "Track artist").String()
	requestDuration = requestCmd.Flag("duration", "Track duration (e.g. 3m12s)").Duration()

	// watch command
	watchCmd = app.Command("watch", "Watch player state updates")
)

func main() {
	_ = godotenv.Load()
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	peerID := *peer
	if peerID == "" {
		peerID = "kiosk-" + uuid.NewString()[:8]
	}

	ctx := context.Background()
	client, err := wschannel.Dial(ctx, *server, *session, peerID)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	switch command {
	case requestCmd.FullCommand():
		request(ctx, client, peerID)
	case watchCmd.FullCommand():
		watch(client)
	}
}

func request(ctx context.Context, client *wschannel.Client, peerID string) {
	t := track.Track{
		ID:       *requestTrackID,
		Title:    *requestTitle,
		Artist:   *requestArtist,
		Duration: *requestDuration,
	}

	cmd, err := channel.NewCommand(channel.TypeQueueAdd, peerID, channel.QueueAddPayload{
		Track: t,
		Queue: track.QueuePriority,
	})
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
		fmt.Println("Request accepted!")
	} else {
		fmt.Printf("Rejected [%s]: %s\n", res.Code, res.Error)
	}
}

func watch(client *wschannel.Client) {
	fmt.Println("Watching player state (Ctrl-C to stop)...")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-sigCh:
			return
		case <-client.Done():
			fmt.Println("Connection closed")
			return
		case s := <-client.Snapshots():
			printSnapshot(s)
		}
	}
}

func printSnapshot(s channel.Snapshot) {
	var now string
	if s.CurrentTrack != nil {
		now = fmt.Sprintf("%s - %s (%s/%s)",
			s.CurrentTrack.Artist, s.CurrentTrack.Title,
			formatSeconds(s.Position), formatSeconds(s.Duration))
	} else {
		now = "(nothing)"
	}
	fmt.Printf("[rev %d] %-9s %s | active=%d (index %d) priority=%d vol=%.0f%%\n",
		s.Revision, strings.ToUpper(s.Status), now,
		len(s.ActiveQueue), s.QueueIndex, len(s.PriorityQueue), s.Volume*100)
}

func formatSeconds(sec float64) string {
	d := time.Duration(sec) * time.Second
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
