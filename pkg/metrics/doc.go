/*
Package metrics provides Prometheus collectors for the motion pipeline.

Collectors are grouped per component and registered on a caller-supplied
prometheus.Registerer, so tests can use a private registry and the CLI can
expose them on /metrics.

# Available Metrics

Motion pipeline:
  - camlink_motion_statuses_total: Statuses produced by listeners (counter)
    Labels: kind (START, STOP, NO_CHANGE)
  - camlink_motion_arm_total: Arming attempts (counter)
    Labels: result (ok, rejected, error)
  - camlink_motion_connection_lost_total: Listeners ended by transport failure (counter)
  - camlink_motion_sessions_active: Open motion sessions (gauge)
  - camlink_motion_queue_depth: Statuses waiting in the last-written session queue (gauge)

A nil *Motion is valid and records nothing.
*/
package metrics
