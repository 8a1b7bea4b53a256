package testutil

import (
	"fmt"
	"testing"

	"entgo.io/ent/dialect"
)

// Usernames of the seeded users, in key order.
const (
	Luke      = "lskywalker@galaxyfarfaraway.com"
	Leia      = "lorgana@galaxyfarfaraway.com"
	Han       = "solocup@galaxyfarfaraway.com"
	Chewbacca = "chewbaclava@galaxyfarfaraway.com"
)

type seedUser struct {
	username, name  string
	hands, captured int
	occupation      any
	cheese          string
	fruit           any
	human           bool
	title           string
	tags            []string
}

var seedUsers = []seedUser{
	{
		username: Luke, name: "Luke Skywalker", hands: 1, captured: 4, occupation: "Jedi",
		cheese: "Gouda", fruit: "Apples", human: true,
		title: "I Kissed a Princess and I Liked it",
		tags:  []string{"#peace", "#thelastjedi"},
	},
	{
		username: Leia, name: "Leia Organa", hands: 2, captured: 6, occupation: nil,
		cheese: "Provolone", fruit: "Mystery Berries", human: true,
		title: "Smugglers: A Girl's Dream",
		tags:  []string{"#princess", "#mysonistheworst"},
	},
	{
		username: Han, name: "Han Solo", hands: 2, captured: 1, occupation: "Smuggler",
		cheese: "Cheddar", fruit: nil, human: true,
		title: "10 Easy Ways to Clean Fur From Couches",
		tags:  []string{"#iknow", "#triggerfinger", "#mysonistheworst"},
	},
	{
		username: Chewbacca, name: "Chewbacca", hands: 0, captured: 0, occupation: "Smuggler's Assistant",
		cheese: "brie", fruit: nil, human: false,
		title: "Rrrrrrr-ghghg Rrrr-ghghghghgh Rrrr-ghghghgh!",
		tags:  []string{"#starwarsfurlife", "#chewonthis"},
	},
}

// Seed inserts four users with keys 1 to 4, each with a profile and one
// tagged post. Tags are created per post, so a label may repeat.
func Seed(t testing.TB, drv dialect.Driver) {
	t.Helper()
	tagID := 0
	for i, u := range seedUsers {
		id := i + 1
		Exec(t, drv,
			"INSERT INTO users (id, username, name, hands, times_captured, occupation) VALUES (?, ?, ?, ?, ?, ?)",
			id, u.username, u.name, u.hands, u.captured, u.occupation)
		Exec(t, drv,
			"INSERT INTO profiles (id, user_id, favorite_cheese, favorite_fruit, is_human) VALUES (?, ?, ?, ?, ?)",
			id, id, u.cheese, u.fruit, u.human)
		Exec(t, drv, "INSERT INTO posts (id, user_id, title) VALUES (?, ?, ?)", id, id, u.title)
		for _, label := range u.tags {
			tagID++
			Exec(t, drv, "INSERT INTO tags (id, label) VALUES (?, ?)", tagID, label)
			Exec(t, drv, "INSERT INTO post_tag (post_id, tag_id) VALUES (?, ?)", id, tagID)
		}
	}
	if drv.Dialect() == dialect.Postgres {
		for _, table := range []string{"users", "profiles", "posts", "tags", "post_tag"} {
			Exec(t, drv, fmt.Sprintf("SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), (SELECT MAX(id) FROM %[1]s))", table))
		}
	}
}
