// Command admin is a terminal board for kitchen staff: it lists orders and
// advances them through the fulfilment chain over the admin API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"pizzaria/internal/model"

	tea "github.com/charmbracelet/bubbletea"
)

const reconnectDelay = 3 * time.Second

type boardModel struct {
	client   boardClient
	orders   []model.Order
	selected int
	status   string
	busy     bool
}

func initialModel(client boardClient) boardModel {
	return boardModel{client: client, status: "Loading..."}
}

type ordersLoaded struct {
	orders []model.Order
	err    error
}

type orderAdvanced struct {
	order *model.Order
	err   error
}

func (m boardModel) Init() tea.Cmd {
	return m.load()
}

func (m boardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}
		case "down", "j":
			if m.selected < len(m.orders)-1 {
				m.selected++
			}
		case "r":
			return m, m.load()
		case "enter", "a":
			if m.busy || len(m.orders) == 0 {
				return m, nil
			}
			order := m.orders[m.selected]
			if order.Status.IsTerminal() {
				m.status = fmt.Sprintf("Order %s is already delivered", shortID(order))
				return m, nil
			}
			m.busy = true
			m.status = "Advancing..."
			return m, m.advance(order)
		}
	case ordersLoaded:
		if msg.err != nil {
			m.status = fmt.Sprintf("Refresh failed: %v", msg.err)
			return m, nil
		}
		m.orders = msg.orders
		if m.selected >= len(m.orders) {
			m.selected = max(len(m.orders)-1, 0)
		}
		if !m.busy {
			m.status = fmt.Sprintf("%d orders, updated %s", len(m.orders), time.Now().Format("15:04:05"))
		}
	case orderAdvanced:
		m.busy = false
		if msg.err != nil {
			m.status = fmt.Sprintf("Advance failed: %v", msg.err)
			return m, m.load()
		}
		for i := range m.orders {
			if m.orders[i].ID == msg.order.ID {
				m.orders[i] = *msg.order
			}
		}
		m.status = fmt.Sprintf("Order %s is now %s", shortID(*msg.order), msg.order.Status)
	}
	return m, nil
}

func (m boardModel) View() string {
	b := &strings.Builder{}
	fmt.Fprintln(b, "pizzaria orders")
	fmt.Fprintln(b, "")
	if len(m.orders) == 0 {
		fmt.Fprintln(b, "  no orders yet")
	}
	for i, order := range m.orders {
		marker := " "
		if i == m.selected {
			marker = ">"
		}
		fmt.Fprintf(b, " %s %s\n", marker, formatOrder(order))
	}
	fmt.Fprintln(b, "")
	fmt.Fprintf(b, "Status: %s\n", m.status)
	fmt.Fprintln(b, "\nControls: up/down select, enter/a advance, r refresh, q quit")
	return b.String()
}

func (m boardModel) load() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		orders, err := client.List(ctx)
		return ordersLoaded{orders: orders, err: err}
	}
}

func (m boardModel) advance(order model.Order) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		updated, err := client.Advance(ctx, order.ID)
		return orderAdvanced{order: updated, err: err}
	}
}

// follow keeps the board live from the order stream, reconnecting after
// a dropped connection.
func follow(ctx context.Context, client *adminClient, p *tea.Program) {
	for ctx.Err() == nil {
		err := client.Stream(ctx, func(orders []model.Order) {
			p.Send(ordersLoaded{orders: orders})
		})
		if ctx.Err() != nil {
			return
		}
		p.Send(ordersLoaded{err: fmt.Errorf("stream: %w", err)})
		select {
		case <-ctx.Done():
		case <-time.After(reconnectDelay):
		}
	}
}

func formatOrder(o model.Order) string {
	return fmt.Sprintf("%s  %-10s  %-8s  R$ %8s  %-20s  %s",
		shortID(o), o.Status, o.FulfillmentType, o.Total.StringFixed(2), o.CustomerName, o.CreatedAt.Local().Format("02/01 15:04"))
}

func shortID(o model.Order) string {
	return o.ID.String()[:8]
}

func main() {
	baseURL := flag.String("url", getenv("ADMIN_API_URL", "http://localhost:8080"), "API base URL")
	list := flag.Bool("list", false, "print the orders and exit")
	flag.Parse()

	apiKey := getenv("ADMIN_API_KEY", "")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "ADMIN_API_KEY is required")
		os.Exit(1)
	}
	client := newAdminClient(*baseURL, apiKey)

	if *list {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		orders, err := client.List(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		for _, o := range orders {
			fmt.Println(formatOrder(o))
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := tea.NewProgram(initialModel(client))
	go follow(ctx, client, p)
	if _, err := p.Run(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func getenv(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}
