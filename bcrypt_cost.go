//go:build !race

package identity

func passwordHashCost() int {
	return 12
}

func racePasswordHashCost() int {
	return 0
}
