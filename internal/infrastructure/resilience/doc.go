/*
Package resilience guards the registry client with a circuit breaker.

After Threshold consecutive failures the breaker opens and calls fail fast
with ErrCircuitOpen. Once Cooldown has passed it lets Probes calls through
(half-open); that many successes close it, a single failure reopens it.

IsSuccessful decides what a failure is. The client counts transport errors
and 5xx responses only, so a server answering DuplicateName or
VersionNotBumped never trips the breaker.

	breaker := resilience.New("registry-client", resilience.Settings{
		Threshold: 5,
		Cooldown:  30 * time.Second,
		Probes:    3,
	})

	details, err := resilience.Call(ctx, breaker, func(ctx context.Context) (*types.ModuleDetails, error) {
		return fetch(ctx, name)
	})
*/
package resilience
