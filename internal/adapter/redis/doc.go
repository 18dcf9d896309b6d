// Package redis implements the artifact store on Redis.
//
// Every command passes through a metrics hook and a failsafe-go circuit breaker hook, so a
// failing Redis turns persist calls into fast errors instead of stalled requests.
package redis
