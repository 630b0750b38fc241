package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dom/snake-draft-server/internal/replication"
	"github.com/dom/snake-draft-server/internal/transport"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Global flags
	apiURL := "http://localhost:8080"
	if envURL := os.Getenv("API_URL"); envURL != "" {
		apiURL = envURL
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "full":
		fullCmd(apiURL, args)
	case "populate":
		populateCmd(apiURL, args)
	case "status":
		statusCmd(apiURL, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Draft Simulator - Development tool for testing draft rooms

USAGE:
  simulator <command> [options]

COMMANDS:
  full      Create a room and fill it with fake guests that stay connected
  populate  Add fake guests to an existing room
  status    Print a room's current status
  help      Show this help message

ENVIRONMENT:
  API_URL   Backend API URL (default: http://localhost:8080)

EXAMPLES:
  # Create a room with 3 fake guests, leaving 1 slot for you to join
  simulator full

  # Create a fully populated 5-member room
  simulator full --count=4

  # Add 2 more guests to an existing room
  simulator populate --room=ABC123 --count=2

  # Check a room
  simulator status --room=ABC123`)
}

func fullCmd(apiURL string, args []string) {
	fs := flag.NewFlagSet("full", flag.ExitOnError)
	count := fs.Int("count", 3, "Number of fake guests to connect (default 3, leaving 1 slot for you)")
	fs.Parse(args)

	if *count < 0 || *count > 4 {
		fmt.Println("Error: --count must be between 0 and 4")
		os.Exit(1)
	}

	client := NewAPIClient(apiURL)

	fmt.Println("=== Draft Simulator: Full Flow ===")
	fmt.Println()

	fmt.Print("Creating room... ")
	hostTicket, err := client.CreateRoom("SimHost")
	if err != nil {
		fmt.Printf("FAILED\n  Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("OK (code: %s)\n", hostTicket.Room.ShortCode)

	// Connect the host too; a closed host channel shuts the room down.
	hostGuest, err := connectGuest(client, hostTicket, "SimHost")
	if err != nil {
		fmt.Printf("Failed to connect host: %v\n", err)
		os.Exit(1)
	}
	defer hostGuest.Leave()

	guests := connectFakeGuests(client, hostTicket.Room.ShortCode, *count)
	defer func() {
		for _, g := range guests {
			g.Leave()
		}
	}()

	slotsOpen := 4 - *count
	fmt.Println()
	fmt.Println("=========================================")
	if slotsOpen > 0 {
		fmt.Printf("  ROOM WAITING FOR %d MORE GUEST(S)\n", slotsOpen)
	} else {
		fmt.Println("  ROOM FULLY POPULATED")
	}
	fmt.Println("=========================================")
	fmt.Println()
	fmt.Printf("  Short Code: %s\n", hostTicket.Room.ShortCode)
	fmt.Printf("  Room ID:    %s\n", hostTicket.Room.ID)
	fmt.Println()
	fmt.Println("  Guests answer heartbeats until you press Ctrl-C.")
	fmt.Println()

	// Stay alive answering PINGs until interrupted or the room closes.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	fmt.Println("Disconnecting...")
}

func populateCmd(apiURL string, args []string) {
	fs := flag.NewFlagSet("populate", flag.ExitOnError)
	roomCode := fs.String("room", "", "Room ID or short code (required)")
	count := fs.Int("count", 1, "Number of guests to add")
	fs.Parse(args)

	if *roomCode == "" {
		fmt.Println("Error: --room is required")
		fmt.Println("\nUsage: simulator populate --room=ABC123 [--count=2]")
		os.Exit(1)
	}

	client := NewAPIClient(apiURL)

	fmt.Printf("Adding %d guests to room %s...\n\n", *count, *roomCode)
	guests := connectFakeGuests(client, *roomCode, *count)
	defer func() {
		for _, g := range guests {
			g.Leave()
		}
	}()

	fmt.Println()
	fmt.Println("Guests answer heartbeats until you press Ctrl-C.")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	fmt.Println("Disconnecting...")
}

func statusCmd(apiURL string, args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	roomCode := fs.String("room", "", "Room ID or short code (required)")
	fs.Parse(args)

	if *roomCode == "" {
		fmt.Println("Error: --room is required")
		fmt.Println("\nUsage: simulator status --room=ABC123")
		os.Exit(1)
	}

	client := NewAPIClient(apiURL)

	room, err := client.GetRoom(*roomCode)
	if err != nil {
		fmt.Printf("Failed to get room: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Room %s\n", room.ShortCode)
	fmt.Printf("  ID:     %s\n", room.ID)
	fmt.Printf("  Status: %s\n", room.Status)
}

func connectFakeGuests(client *APIClient, roomCode string, count int) []*replication.Guest {
	var guests []*replication.Guest
	for i := 0; i < count; i++ {
		name := fmt.Sprintf("Guest%d", i+1)
		ticket, err := client.JoinRoom(roomCode, name)
		if err != nil {
			fmt.Printf("  [%d/%d] FAILED to get ticket: %v\n", i+1, count, err)
			continue
		}

		guest, err := connectGuest(client, ticket, name)
		if err != nil {
			fmt.Printf("  [%d/%d] FAILED to connect: %v\n", i+1, count, err)
			continue
		}

		guests = append(guests, guest)
		fmt.Printf("  [%d/%d] %s joined\n", i+1, count, name)
	}
	return guests
}

func connectGuest(client *APIClient, ticket *Ticket, name string) (*replication.Guest, error) {
	ch, err := transport.DialWS(client.WebsocketURL(ticket), ticket.PeerID)
	if err != nil {
		return nil, err
	}

	guest := replication.NewGuest(ch, name, replication.GuestEvents{})
	if err := guest.Join(); err != nil {
		return nil, err
	}
	return guest, nil
}
