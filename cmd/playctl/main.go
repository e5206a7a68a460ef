// Package main provides the control tool: it sends one command to a
// running playd and prints the response.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	"github.com/playd/playd/internal/api/ipc"
	"github.com/playd/playd/internal/infra/config"
)

var (
	app    = kingpin.New("playctl", "Control a running playd daemon")
	socket = app.Flag("socket", "Control socket path").Envar("PLAYD_SOCKET").String()
	token  = app.Flag("token", "Auth token").Envar("PLAYD_TOKEN").String()

	playCmd   = app.Command("play", "Start or resume playback")
	pauseCmd  = app.Command("pause", "Pause playback")
	statusCmd = app.Command("status", "Show playback status")
	nextCmd   = app.Command("next", "Play the next queued track")
	listCmd   = app.Command("list", "List the queue")
	stopCmd   = app.Command("stop", "Stop playback")

	enqueueCmd = app.Command("enqueue", "Add a track to the queue")
	enqueueURI = enqueueCmd.Arg("uri", "Track locator (path or URL)").Required().String()
)

const (
	exitCommandFailed = 1
	exitTransport     = 2
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	req := &ipc.Request{Token: *token}
	switch command {
	case playCmd.FullCommand():
		req.Cmd = ipc.CmdPlay
	case pauseCmd.FullCommand():
		req.Cmd = ipc.CmdPause
	case statusCmd.FullCommand():
		req.Cmd = ipc.CmdStatus
	case nextCmd.FullCommand():
		req.Cmd = ipc.CmdNext
	case listCmd.FullCommand():
		req.Cmd = ipc.CmdList
	case stopCmd.FullCommand():
		req.Cmd = ipc.CmdStop
	case enqueueCmd.FullCommand():
		req.Cmd = ipc.CmdEnqueue
		args, err := json.Marshal(ipc.EnqueueArgs{URI: *enqueueURI})
		if err != nil {
			transportFatal(err)
		}
		req.Args = args
	}

	resp := roundTrip(req)
	if !resp.OK {
		kind, message := "internal_error", "no error detail"
		if resp.Error != nil {
			kind, message = resp.Error.Kind, resp.Error.Message
		}
		fmt.Fprintf(os.Stderr, "error [%s]: %s\n", kind, message)
		os.Exit(exitCommandFailed)
	}

	printData(req.Cmd, resp.Data)
}

func roundTrip(req *ipc.Request) *ipc.Response {
	path := *socket
	if path == "" {
		path = config.DefaultSocketPath()
	}

	conn, err := net.DialTimeout("unix", path, 3*time.Second)
	if err != nil {
		transportFatal(fmt.Errorf("cannot reach playd at %s: %w", path, err))
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(10 * time.Second))

	line, err := ipc.EncodeRequest(req)
	if err != nil {
		transportFatal(err)
	}
	if _, err := conn.Write(line); err != nil {
		transportFatal(err)
	}

	raw, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		transportFatal(fmt.Errorf("no response from daemon: %w", err))
	}
	resp, err := ipc.DecodeResponse(raw)
	if err != nil {
		transportFatal(err)
	}
	return resp
}

func printData(cmd ipc.Command, data json.RawMessage) {
	switch cmd {
	case ipc.CmdStatus:
		var st ipc.StatusData
		if err := json.Unmarshal(data, &st); err != nil {
			transportFatal(err)
		}
		fmt.Printf("state: %s\n", st.State)
		if st.Track != "" {
			fmt.Printf("track: %s\n", st.Track)
		}
		if st.Position != nil {
			fmt.Printf("position: %.1fs\n", *st.Position)
		}
		fmt.Printf("queue: %d\n", st.QueueLen)

	case ipc.CmdList:
		var list ipc.ListData
		if err := json.Unmarshal(data, &list); err != nil {
			transportFatal(err)
		}
		if len(list.Tracks) == 0 {
			fmt.Println("queue is empty")
			return
		}
		for i, uri := range list.Tracks {
			fmt.Printf("%3d  %s\n", i+1, uri)
		}

	default:
		// play/pause/next/stop/enqueue: print the payload as-is
		fmt.Println(string(data))
	}
}

func transportFatal(err error) {
	fmt.Fprintf(os.Stderr, "playctl: %v\n", err)
	os.Exit(exitTransport)
}
