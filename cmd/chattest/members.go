package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/danmuck/chattest/internal/room"
	"github.com/olekukonko/tablewriter"
)

var errNoAdminURL = errors.New("admin_url is not configured")

type membersResponse struct {
	Room    string            `json:"room"`
	Members []room.MemberInfo `json:"members"`
}

func members(ctx context.Context, adminURL string, out io.Writer) error {
	resp, err := fetchMembers(ctx, adminURL)
	if err != nil {
		return err
	}
	renderMembers(out, resp)
	return nil
}

func fetchMembers(ctx context.Context, adminURL string) (membersResponse, error) {
	base := strings.TrimRight(strings.TrimSpace(adminURL), "/")
	if base == "" {
		return membersResponse{}, errNoAdminURL
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/members", nil)
	if err != nil {
		return membersResponse{}, err
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return membersResponse{}, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return membersResponse{}, fmt.Errorf("members: unexpected status %d", res.StatusCode)
	}
	var out membersResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return membersResponse{}, fmt.Errorf("members: decode: %w", err)
	}
	return out, nil
}

func renderMembers(out io.Writer, resp membersResponse) {
	fmt.Fprintf(out, "room %s, %d member(s)\n", resp.Room, len(resp.Members))
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Name", "Remote", "Joined", "ID"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	for _, m := range resp.Members {
		table.Append([]string{m.Name, m.RemoteAddr, m.JoinedAt.Format(time.RFC3339), m.ID})
	}
	table.Render()
}
