package seed

import (
	"context"
	"fmt"
	"strings"

	"curryhouse/internal/domain"
	menurepo "curryhouse/internal/repository/menu"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

// Admin is the staff account created by Apply.
type Admin struct {
	Name     string
	Email    string
	Phone    string
	Password string
}

type menuSeed struct {
	Name        string
	Description string
	PriceNOK    int64
	Category    string
	Tags        []string
	Popular     bool
	Vegetarian  bool
	Spice       int
	PrepMinutes int
}

// Spice levels: 0 none, 1 mild, 2 medium, 3 hot.
var menu = []menuSeed{
	{"Jodhpuri Chicken Biryani", "Rice cooked with boneless chicken, cashews, raisin", 219, "Biryani", []string{"Dinner", "Chef Special", "Party"}, true, false, 2, 25},
	{"Lamb Biryani", "Fragrant basmati rice with tender lamb pieces and aromatic spices", 249, "Biryani", []string{"Dinner", "Party"}, true, false, 3, 30},
	{"Vegetable Biryani", "Mixed vegetables cooked with basmati rice and Indian spices", 179, "Biryani", []string{"Vegetarian", "Lunch", "Dinner"}, false, true, 1, 20},
	{"Kylling Kebab i pita", "Chicken kebab in pita bread with fresh vegetables and sauce", 105, "Kebab", []string{"Lunch", "Dinner"}, true, false, 1, 15},
	{"Lamb Kebab", "Grilled lamb kebab with fresh salad and yogurt sauce", 125, "Kebab", []string{"Lunch", "Dinner"}, false, false, 2, 20},
	{"Tikka Chicken Masala", "Grilled chicken in creamy tomato sauce with aromatic spices", 189, "Curry", []string{"Dinner", "Chef Special"}, true, false, 2, 25},
	{"Lamb Tikka Masala", "Tender lamb pieces in rich masala sauce", 209, "Curry", []string{"Dinner", "Party"}, false, false, 3, 30},
	{"Palak Paneer", "Indian cottage cheese in creamy spinach curry", 169, "Curry", []string{"Vegetarian", "Dinner"}, false, true, 1, 20},
	{"Butter Chicken", "Tender chicken in creamy tomato butter sauce", 199, "Curry", []string{"Dinner", "Chef Special"}, true, false, 1, 25},
	{"Tikka Chicken Masala Combo", "Tikka chicken masala with rice, naan and a drink", 275, "Combo Meals", []string{"Lunch", "Dinner", "Chef Special"}, true, false, 2, 25},
	{"Lamb Tikka Masala Combo", "Lamb tikka masala with rice, naan and a drink", 290, "Combo Meals", []string{"Lunch", "Dinner", "Party"}, false, false, 3, 30},
	{"Samosa (2 pieces)", "Crispy pastry filled with spiced potatoes and peas", 59, "Appetizers", []string{"Vegetarian", "Lunch"}, false, true, 1, 15},
	{"Onion Bhaji", "Crispy onion fritters with Indian spices", 65, "Appetizers", []string{"Vegetarian", "Lunch"}, false, true, 2, 12},
	{"Chicken Pakora", "Spiced chicken fritters", 89, "Appetizers", []string{"Lunch"}, false, false, 2, 15},
	{"Peshawari Naan", "Leavened bread filled with coconut, raisins and cashews", 49, "Naan", []string{"Lunch", "Dinner"}, true, true, 0, 10},
	{"Plain Naan", "Traditional Indian leavened bread", 29, "Naan", []string{"Lunch", "Dinner"}, false, true, 0, 8},
	{"Garlic Naan", "Naan bread topped with fresh garlic and butter", 39, "Naan", []string{"Lunch", "Dinner"}, true, true, 0, 10},
	{"Cheese Naan", "Naan stuffed with mozzarella cheese", 49, "Naan", []string{"Lunch", "Dinner"}, false, true, 0, 12},
	{"Cola 0.5L", "Refreshing cola drink", 35, "Drinks", []string{"Lunch", "Dinner"}, false, true, 0, 2},
	{"Sprite 0.5L", "Lemon-lime flavored soft drink", 35, "Drinks", []string{"Lunch", "Dinner"}, false, true, 0, 2},
	{"Fanta 0.5L", "Orange flavored soft drink", 35, "Drinks", []string{"Lunch", "Dinner"}, false, true, 0, 2},
	{"Mango Lassi", "Traditional Indian yogurt drink with mango", 45, "Drinks", []string{"Lunch", "Dinner"}, true, true, 0, 5},
	{"Gulab Jamun (2 pieces)", "Sweet milk dumplings in sugar syrup", 55, "Desserts", []string{"Dinner"}, true, true, 0, 5},
	{"Kulfi (Mango)", "Traditional Indian ice cream with mango flavor", 49, "Desserts", []string{"Dinner"}, false, true, 0, 5},
}

// Apply inserts the demo menu and an admin account. It is idempotent: menu
// items upsert by name and an existing admin email is left untouched.
func Apply(ctx context.Context, pool *pgxpool.Pool, admin Admin) (int, error) {
	repo := menurepo.NewPostgres(pool, nil)
	for _, m := range menu {
		item := domain.MenuItem{
			Name:            m.Name,
			Description:     m.Description,
			PriceCents:      m.PriceNOK * 100,
			Category:        m.Category,
			Tags:            m.Tags,
			IsAvailable:     true,
			IsPopular:       m.Popular,
			IsVegetarian:    m.Vegetarian,
			SpiceLevel:      m.Spice,
			PreparationTime: m.PrepMinutes,
		}
		if _, err := repo.Upsert(ctx, item); err != nil {
			return 0, fmt.Errorf("upsert menu item %s: %w", m.Name, err)
		}
	}

	if err := ensureAdmin(ctx, pool, admin); err != nil {
		return 0, fmt.Errorf("ensure admin: %w", err)
	}
	return len(menu), nil
}

func ensureAdmin(ctx context.Context, pool *pgxpool.Pool, a Admin) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(a.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO customers (name, email, phone, password_hash, role)
VALUES ($1, $2, $3, $4, 'admin')
ON CONFLICT ((lower(email))) DO NOTHING
`
	_, err = pool.Exec(ctx, q, a.Name, strings.ToLower(a.Email), a.Phone, string(hash))
	return err
}
