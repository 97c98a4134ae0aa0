package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/pmendes/restaurante-client/internal/api"
	"github.com/pmendes/restaurante-client/internal/cart"
	"github.com/pmendes/restaurante-client/internal/config"
	"github.com/pmendes/restaurante-client/internal/session"
	"github.com/pmendes/restaurante-client/internal/storage"
)

const usage = `usage: restaurante <command> [args]

  menu                                  show the menu
  add <product-id> <quantity>           add a product to the cart
  remove <product-id>                   remove a product from the cart
  qty <product-id> <quantity>           change a line's quantity
  cart                                  show the cart
  clear                                 empty the cart
  login <phone> <password>              log in
  register <name> <phone> <age> <password> [address]
  logout                                log out
  order [notes]                         submit the cart as an order
  orders                                show order history
  status <order-id>                     show one order
  watch                                 follow live order status updates
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := config.Load()

	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	store, err := openStorage(cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open storage")
	}

	client := api.NewClient(cfg.BackendURL, logger)
	cartStore := cart.NewStore(store, logger)
	sess := session.NewStore(client, store, logger)

	app := &app{client: client, cart: cartStore, session: sess}
	if err := app.run(os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func openStorage(cfg *config.Config) (storage.Store, error) {
	if cfg.RedisAddr != "" {
		return storage.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, "restaurante:")
	}
	return storage.NewFileStore(cfg.StoragePath)
}

type app struct {
	client  *api.Client
	cart    *cart.Store
	session *session.Store
}

func (a *app) run(command string, args []string) error {
	switch command {
	case "menu":
		return a.showMenu()
	case "add":
		return a.addToCart(args)
	case "remove":
		return a.removeFromCart(args)
	case "qty":
		return a.updateQuantity(args)
	case "cart":
		return a.showCart()
	case "clear":
		a.cart.Clear()
		fmt.Println("cart cleared")
		return nil
	case "login":
		return a.login(args)
	case "register":
		return a.register(args)
	case "logout":
		a.session.Logout()
		fmt.Println("logged out")
		return nil
	case "order":
		return a.submitOrder(args)
	case "orders":
		return a.showOrders()
	case "status":
		return a.showOrder(args)
	case "watch":
		return a.watch()
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) showMenu() error {
	products, err := a.client.GetProducts()
	if err != nil {
		return err
	}
	for _, p := range products {
		marker := " "
		if !p.Available {
			marker = "x"
		}
		fmt.Printf("[%s] %3d  %-24s %8.2f  %s\n", marker, p.ID, p.Name, p.Price, p.Category)
	}
	return nil
}

func (a *app) addToCart(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: add <product-id> <quantity>")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid product id %q", args[0])
	}
	quantity, err := strconv.Atoi(args[1])
	if err != nil || quantity < 1 {
		return fmt.Errorf("quantity must be a positive integer")
	}

	products, err := a.client.GetProducts()
	if err != nil {
		return err
	}
	for _, p := range products {
		if p.ID == id {
			a.cart.AddItem(p, quantity)
			fmt.Printf("added %d x %s\n", quantity, p.Name)
			return nil
		}
	}
	return fmt.Errorf("product %d is not on the menu", id)
}

func (a *app) removeFromCart(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: remove <product-id>")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid product id %q", args[0])
	}
	a.cart.RemoveItem(id)
	fmt.Println("removed")
	return nil
}

func (a *app) updateQuantity(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: qty <product-id> <quantity>")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid product id %q", args[0])
	}
	quantity, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid quantity %q", args[1])
	}
	a.cart.UpdateQuantity(id, quantity)
	fmt.Println("updated")
	return nil
}

func (a *app) showCart() error {
	lines := a.cart.Lines()
	if len(lines) == 0 {
		fmt.Println("cart is empty")
		return nil
	}
	for _, line := range lines {
		fmt.Printf("%3d  %-24s %3d x %8.2f = %8.2f\n",
			line.Product.ID, line.Product.Name, line.Quantity,
			line.Product.Price, line.Product.Price*float64(line.Quantity))
	}
	fmt.Printf("     %d items, total %.2f\n", a.cart.ItemCount(), a.cart.Total())
	return nil
}

func (a *app) login(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: login <phone> <password>")
	}
	customer, err := a.session.Login(args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Printf("welcome, %s\n", customer.Name)
	return nil
}

func (a *app) register(args []string) error {
	if len(args) < 4 {
		return fmt.Errorf("usage: register <name> <phone> <age> <password> [address]")
	}
	age, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("invalid age %q", args[2])
	}
	address := ""
	if len(args) > 4 {
		address = args[4]
	}
	customer, err := a.session.Register(args[0], args[1], address, age, args[3])
	if err != nil {
		return err
	}
	fmt.Printf("registered, welcome %s\n", customer.Name)
	return nil
}

func (a *app) submitOrder(args []string) error {
	lines := a.cart.Lines()
	if len(lines) == 0 {
		return fmt.Errorf("cart is empty")
	}

	notes := ""
	if len(args) > 0 {
		notes = args[0]
	}

	selections := make([]api.Selection, 0, len(lines))
	for _, line := range lines {
		selections = append(selections, api.Selection{
			ProductID: line.Product.ID,
			Quantity:  line.Quantity,
		})
	}

	order, err := a.client.CreateOrder(selections, notes, a.session.Customer())
	if err != nil {
		return err
	}

	// The cart only clears once the backend accepted the order.
	a.cart.Clear()

	fmt.Printf("order #%d placed, total %.2f, status %s\n", order.ID, order.Total, order.Status)
	return nil
}

func (a *app) showOrders() error {
	phone := ""
	if customer := a.session.Customer(); customer != nil {
		phone = customer.Phone
	}
	orders, err := a.client.GetOrders(phone)
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		fmt.Println("no orders")
		return nil
	}
	for _, o := range orders {
		fmt.Printf("#%d  %-10s  total %8.2f  %s\n", o.ID, o.Status, o.Total, o.CreatedAt.Format("2006-01-02 15:04"))
		for _, line := range o.Lines {
			fmt.Printf("      %d x %-24s @ %.2f\n", line.Quantity, line.Product.Name, line.UnitPrice)
		}
	}
	return nil
}

func (a *app) showOrder(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: status <order-id>")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid order id %q", args[0])
	}
	order, err := a.client.GetOrder(id)
	if err != nil {
		return err
	}
	fmt.Printf("#%d  %s  total %.2f\n", order.ID, order.Status, order.Total)
	for _, line := range order.Lines {
		fmt.Printf("  %d x %-24s @ %.2f\n", line.Quantity, line.Product.Name, line.UnitPrice)
	}
	return nil
}

func (a *app) watch() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	updates, err := a.client.WatchOrders(ctx)
	if err != nil {
		return err
	}

	fmt.Println("watching order status, ctrl-c to stop")
	for update := range updates {
		fmt.Printf("order #%d is now %s\n", update.OrderID, update.Status)
	}
	return nil
}
