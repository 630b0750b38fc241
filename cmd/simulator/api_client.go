package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// APIClient handles HTTP communication with the backend
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClient creates a new API client
func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: baseURL + "/api/v1",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Response types matching backend

type Room struct {
	ID        string `json:"id"`
	ShortCode string `json:"shortCode"`
	Status    string `json:"status"`
}

type Ticket struct {
	Room         Room   `json:"room"`
	PeerID       string `json:"peerId"`
	Token        string `json:"token"`
	IsHost       bool   `json:"isHost"`
	WebsocketURL string `json:"websocketUrl"`
}

// CreateRoom creates a room and returns the host's ticket.
func (c *APIClient) CreateRoom(hostName string) (*Ticket, error) {
	body := map[string]string{
		"hostName": hostName,
	}

	resp, err := c.post("/rooms", body)
	if err != nil {
		return nil, fmt.Errorf("create room request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("create room failed (status %d): %s", resp.StatusCode, string(bodyBytes))
	}

	var ticket Ticket
	if err := json.NewDecoder(resp.Body).Decode(&ticket); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &ticket, nil
}

// JoinRoom issues a guest ticket for an existing room.
func (c *APIClient) JoinRoom(idOrCode, name string) (*Ticket, error) {
	body := map[string]string{
		"name": name,
	}

	resp, err := c.post("/rooms/"+idOrCode+"/join", body)
	if err != nil {
		return nil, fmt.Errorf("join room request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("join room failed (status %d): %s", resp.StatusCode, string(bodyBytes))
	}

	var ticket Ticket
	if err := json.NewDecoder(resp.Body).Decode(&ticket); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &ticket, nil
}

// GetRoom fetches room details.
func (c *APIClient) GetRoom(idOrCode string) (*Room, error) {
	resp, err := c.get("/rooms/" + idOrCode)
	if err != nil {
		return nil, fmt.Errorf("get room request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("get room failed (status %d): %s", resp.StatusCode, string(bodyBytes))
	}

	var room Room
	if err := json.NewDecoder(resp.Body).Decode(&room); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &room, nil
}

// WebsocketURL turns a ticket into a dialable ws:// URL.
func (c *APIClient) WebsocketURL(ticket *Ticket) string {
	base := strings.TrimSuffix(c.baseURL, "/api/v1")
	base = strings.Replace(base, "https://", "wss://", 1)
	base = strings.Replace(base, "http://", "ws://", 1)
	return base + ticket.WebsocketURL
}

// HTTP helpers

func (c *APIClient) get(path string) (*http.Response, error) {
	req, err := http.NewRequest("GET", c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.httpClient.Do(req)
}

func (c *APIClient) post(path string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest("POST", c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.httpClient.Do(req)
}
