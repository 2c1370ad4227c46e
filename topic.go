package mqttq

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Topic errors. All of them match ErrInvalidTopic with errors.Is.
var (
	ErrInvalidTopic       = errors.New("invalid topic")
	ErrInvalidTopicName   = fmt.Errorf("%w name", ErrInvalidTopic)
	ErrInvalidTopicFilter = fmt.Errorf("%w filter", ErrInvalidTopic)
	ErrEmptyTopic         = fmt.Errorf("%w: topic cannot be empty", ErrInvalidTopic)
	ErrNoTopics           = fmt.Errorf("%w: no topics given", ErrInvalidTopic)
)

const (
	topicSeparator      = '/'
	singleLevelWildcard = '+'
	multiLevelWildcard  = '#'
)

// ValidateTopicName validates a topic name used for publishing.
// Topic names cannot contain wildcards.
func ValidateTopicName(topic string) error {
	if topic == "" {
		return ErrEmptyTopic
	}

	if err := checkString(topic); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTopicName, err)
	}

	if strings.ContainsAny(topic, "+#") {
		return ErrInvalidTopicName
	}

	return nil
}

// ValidateTopicFilter validates a topic filter used for subscribing.
// '+' must occupy a whole level; '#' must occupy the last level.
func ValidateTopicFilter(filter string) error {
	if filter == "" {
		return ErrEmptyTopic
	}

	if err := checkString(filter); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTopicFilter, err)
	}

	levels := strings.Split(filter, string(topicSeparator))
	for i, level := range levels {
		if strings.ContainsRune(level, singleLevelWildcard) && level != "+" {
			return ErrInvalidTopicFilter
		}

		if strings.ContainsRune(level, multiLevelWildcard) {
			if level != "#" || i != len(levels)-1 {
				return ErrInvalidTopicFilter
			}
		}
	}

	return nil
}

// TopicMatch reports whether a topic name matches a topic filter.
// Topics starting with '$' never match a filter with a leading wildcard.
func TopicMatch(filter, topic string) bool {
	if filter == "" || topic == "" {
		return false
	}

	if topic[0] == '$' && (filter[0] == singleLevelWildcard || filter[0] == multiLevelWildcard) {
		return false
	}

	for {
		flevel, frest, fmore := strings.Cut(filter, "/")
		if flevel == "#" {
			return true
		}

		tlevel, trest, tmore := strings.Cut(topic, "/")
		if flevel != "+" && flevel != tlevel {
			return false
		}

		if !fmore || !tmore {
			// "a/#" also matches "a"
			if fmore {
				return frest == "#"
			}
			return !tmore
		}

		filter, topic = frest, trest
	}
}

// NormalizeTopics converts the shapes accepted by Subscribe and
// Unsubscribe into one ordered list of subscriptions:
//
//   - string: a single filter at QoS 0
//   - []string: filters at QoS 0, order preserved
//   - Subscription: a single filter with its QoS
//   - []Subscription: order preserved
//   - map[string]byte: filter to QoS, sorted by filter since Go maps
//     are unordered
//
// Every filter is validated and QoS values above 2 are rejected.
func NormalizeTopics(topics any) ([]Subscription, error) {
	var subs []Subscription

	switch t := topics.(type) {
	case string:
		subs = []Subscription{{Topic: t}}
	case []string:
		subs = make([]Subscription, 0, len(t))
		for _, topic := range t {
			subs = append(subs, Subscription{Topic: topic})
		}
	case Subscription:
		subs = []Subscription{t}
	case []Subscription:
		subs = slices.Clone(t)
	case map[string]byte:
		subs = make([]Subscription, 0, len(t))
		for topic, qos := range t {
			subs = append(subs, Subscription{Topic: topic, QoS: qos})
		}
		slices.SortFunc(subs, func(a, b Subscription) int {
			return strings.Compare(a.Topic, b.Topic)
		})
	default:
		return nil, fmt.Errorf("%w: unsupported topics type %T", ErrInvalidTopic, topics)
	}

	if len(subs) == 0 {
		return nil, ErrNoTopics
	}

	for _, sub := range subs {
		if err := ValidateTopicFilter(sub.Topic); err != nil {
			return nil, fmt.Errorf("%q: %w", sub.Topic, err)
		}
		if sub.QoS > QoS2 {
			return nil, fmt.Errorf("%q: %w", sub.Topic, ErrInvalidQoS)
		}
	}

	return subs, nil
}
