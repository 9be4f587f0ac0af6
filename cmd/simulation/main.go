package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Drives a running bridge (DEMO_MODE=true) through a short discovery
// session: start, wait for candidates, decide a few, then tear down.

type snapshot struct {
	SessionID   string `json:"session_id"`
	State       string `json:"state"`
	EmptyReason string `json:"empty_reason"`
	Message     string `json:"message"`
	Notice      string `json:"notice"`
	Front       *struct {
		ID       string  `json:"id"`
		Name     string  `json:"name"`
		Age      int     `json:"age"`
		Distance float64 `json:"distance"`
	} `json:"front"`
	SafetyGated     bool   `json:"safety_gated"`
	ShowLikeTooltip bool   `json:"show_like_tooltip"`
	Remaining       int    `json:"remaining"`
	Version         uint64 `json:"version"`
}

type response struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Data    snapshot `json:"data"`
}

var (
	baseURL   string
	token     string
	decisions int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "simulation",
		Short: "Scripted discovery session against a running bridge",
		Long: `Starts a discovery session on the bridge, waits for candidates, decides a
few of them, refreshes and closes the session, printing every snapshot.

Run the bridge with DEMO_MODE=true to use the built-in candidate pool.`,
		RunE: run,
	}

	rootCmd.Flags().StringVar(&baseURL, "url", "http://localhost:3001/api", "Bridge API base URL")
	rootCmd.Flags().StringVar(&token, "token", os.Getenv("BRIDGE_TOKEN"), "Bearer token when BRIDGE_JWT_SECRET is set")
	rootCmd.Flags().IntVar(&decisions, "decisions", 5, "How many candidates to decide")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	color.Cyan("Discovery Session Simulation (%s)\n", baseURL)

	color.Yellow("\n1. Start session")
	snap, err := call("POST", "/sessions", nil)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	id := snap.SessionID
	color.Green("Session %s: %s", id, snap.State)

	color.Yellow("\n2. Wait for candidates")
	snap, err = waitSettled(id, 15*time.Second)
	if err != nil {
		return fmt.Errorf("session never settled: %w", err)
	}
	printSnapshot(snap)

	color.Yellow("\n3. Decide")
	kinds := []string{"like", "hide", "compliment"}
	for i := 0; i < decisions; i++ {
		kind := kinds[i%len(kinds)]
		if snap.State != "ready" || snap.Front == nil {
			break
		}
		body := map[string]string{"kind": kind, "candidate_id": snap.Front.ID}
		if kind == "compliment" {
			body["message"] = "Great taste in music!"
		}

		color.White("%s -> %s (%s)", kind, snap.Front.Name, snap.Front.ID)
		snap, err = call("POST", "/sessions/"+id+"/decisions", body)
		if err != nil {
			color.Red("Failed: %v", err)
			break
		}
		printSnapshot(snap)
	}

	color.Yellow("\n4. Refresh")
	if _, err := call("POST", "/sessions/"+id+"/refresh", nil); err != nil {
		color.Red("Failed: %v", err)
	} else if snap, err = waitSettled(id, 15*time.Second); err == nil {
		printSnapshot(snap)
	}

	color.Yellow("\n5. Close")
	if _, err := call("DELETE", "/sessions/"+id, nil); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	color.Green("Session closed")
	return nil
}

func waitSettled(id string, timeout time.Duration) (snapshot, error) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		snap, err := call("GET", "/sessions/"+id, nil)
		if err != nil {
			return snapshot{}, err
		}
		if snap.State == "ready" || snap.State == "empty" {
			return snap, nil
		}
		fmt.Printf("  ... %s\n", snap.State)
		time.Sleep(500 * time.Millisecond)
	}
	return snapshot{}, fmt.Errorf("timed out after %v", timeout)
}

func printSnapshot(s snapshot) {
	fmt.Printf("  state=%s remaining=%d version=%d\n", s.State, s.Remaining, s.Version)
	if s.Front != nil {
		fmt.Printf("  front: %s, %d, %.1f km", s.Front.Name, s.Front.Age, s.Front.Distance)
		if s.SafetyGated {
			color.New(color.FgRed).Print("  [safety check]")
		}
		if s.ShowLikeTooltip {
			color.New(color.FgBlue).Print("  [like tooltip]")
		}
		fmt.Println()
	}
	if s.EmptyReason != "" {
		color.Magenta("  empty: %s %s", s.EmptyReason, s.Message)
	}
	if s.Notice != "" {
		color.Magenta("  notice: %s", s.Notice)
	}
}

func call(method, path string, body interface{}) (snapshot, error) {
	var reader io.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	}

	req, _ := http.NewRequest(method, baseURL+path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return snapshot{}, err
	}
	defer resp.Body.Close()

	var res response
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return snapshot{}, err
	}
	if resp.StatusCode >= 300 {
		return snapshot{}, fmt.Errorf("%s: %s", resp.Status, res.Message)
	}
	return res.Data, nil
}
