package navigation

import (
	"log"
	"sync"
)

type Role string

const (
	RoleFarmer Role = "farmer"
	RoleBuyer  Role = "buyer"
	RoleBank   Role = "bank"
	RoleExpert Role = "expert"
	RoleAdmin  Role = "admin"
)

// HomeTab is the tab every shell starts on
const HomeTab = "home"

// Shell holds one role's navigation state and follows bus notifications.
// A tab change clears the sub-route; a sub-route change applies only when it
// targets the active tab.
type Shell struct {
	mu        sync.RWMutex
	role      Role
	activeTab string
	subRoute  SubRoute
}

func NewShell(role Role) *Shell {
	return &Shell{role: role, activeTab: HomeTab}
}

func (s *Shell) Role() Role { return s.role }

func (s *Shell) ActiveTab() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeTab
}

// SubRoute returns the active sub-route; the zero value means the tab root
func (s *Shell) SubRoute() SubRoute {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subRoute
}

// Attach subscribes the shell to both channels of bus and returns a function
// that detaches it again.
func (s *Shell) Attach(bus *Bus) (detach func()) {
	unsubTab := bus.SubscribeTabChange(s.onTabChange)
	unsubRoute := bus.SubscribeSubRouteChange(s.onSubRouteChange)
	return func() {
		unsubTab()
		unsubRoute()
	}
}

func (s *Shell) onTabChange(tabID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeTab = tabID
	s.subRoute = SubRoute{}
}

func (s *Shell) onSubRouteChange(tabID, path string) {
	route, err := ParseSubRoute(path)
	if err != nil {
		log.Printf("[Navigation] %s shell ignored sub-route: %v", s.role, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tabID != s.activeTab {
		return
	}
	s.subRoute = route
}
