package websocket

import redis "github.com/redis/go-redis/v9"

// Process-wide hub and presence registry, wired once from main. redisClient
// may be nil for single-process deployments.
var (
	DefaultHub *Hub
	Presence   *Registry
)

func Init(redisClient *redis.Client) {
	DefaultHub = NewHub(redisClient)
	Presence = NewRegistry(DefaultHub, redisClient)
}
