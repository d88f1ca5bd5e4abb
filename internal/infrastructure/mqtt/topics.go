package mqtt

import "fmt"

// Topic prefixes for the webthingd broker mirror.
//
// The scheme is flat: webthings/{thing_id}/updates for mirrored
// notifications, webthings/system/status for daemon presence.
const (
	// TopicPrefix is the base for all webthingd topics.
	TopicPrefix = "webthings"

	// TopicPrefixSystem is the base for daemon status topics.
	TopicPrefixSystem = "webthings/system"
)

// Topics provides builders for webthingd MQTT topics. Using these helpers
// keeps topic naming consistent across the codebase.
type Topics struct{}

// ThingUpdates returns the topic mirrored notifications for one thing are
// published to.
//
// Example: webthings/my-lamp-1234/updates
func (Topics) ThingUpdates(thingID string) string {
	return fmt.Sprintf("%s/%s/updates", TopicPrefix, thingID)
}

// SystemStatus returns the topic for daemon online/offline status.
//
// Example: webthings/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}
