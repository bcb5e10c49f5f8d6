/*
Package ports defines the interfaces between the conversion core and its adapters.

These interfaces decouple the transports (HTTP, MCP) from the engine that does the work and
from the backends that guard it.

# Key Interfaces

  - Converter: Converts, simulates and validates machine descriptions. Implemented by fsmconv.Engine.
  - RateLimiter: Fixed-window request budget per client key (in memory or Redis).
*/
package ports
