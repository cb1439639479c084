package engine

import (
	"sort"
	"strings"

	"github.com/mmrzaf/rowgen/internal/domain"
	"github.com/mmrzaf/rowgen/internal/errors"
)

// OrderProperties sorts an entity's properties so that every property comes
// after the properties its arguments read from. Among ready properties the
// earliest declared goes first.
func OrderProperties(entity *domain.Entity) ([]*domain.Property, error) {
	index := make(map[string]int, len(entity.Properties))
	for i := range entity.Properties {
		name := entity.Properties[i].Name
		if _, dup := index[name]; dup {
			return nil, errors.Newf(errors.ErrConfiguration, "entity '%s': duplicate property '%s'", entity.Name, name)
		}
		index[name] = i
	}

	inDegree := make([]int, len(entity.Properties))
	dependents := make([][]int, len(entity.Properties))
	for i := range entity.Properties {
		seen := map[int]bool{}
		for _, up := range entity.Properties[i].Upstream() {
			j, ok := index[up]
			if !ok {
				return nil, errors.Newf(errors.ErrConfiguration, "entity '%s', property '%s': argument references unknown property '%s'",
					entity.Name, entity.Properties[i].Name, up)
			}
			if seen[j] {
				continue
			}
			seen[j] = true
			inDegree[i]++
			dependents[j] = append(dependents[j], i)
		}
	}

	var queue []int
	for i, d := range inDegree {
		if d == 0 {
			queue = append(queue, i)
		}
	}

	ordered := make([]*domain.Property, 0, len(entity.Properties))
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		ordered = append(ordered, &entity.Properties[i])

		for _, dep := range dependents[i] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
				sort.Ints(queue)
			}
		}
	}

	if len(ordered) != len(entity.Properties) {
		var cyclic []string
		for i, d := range inDegree {
			if d > 0 {
				cyclic = append(cyclic, entity.Properties[i].Name)
			}
		}
		return nil, errors.Newf(errors.ErrDependencyCycle, "entity '%s': argument cycle among properties %s",
			entity.Name, strings.Join(cyclic, ", "))
	}
	return ordered, nil
}
