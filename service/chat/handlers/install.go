package handlers

import "PPRelay/service/chat"

// Install registers every relay handler on s.
func Install(s *chat.Server, auth AuthConfig) {
	log := s.Log().Named("handlers")
	s.Handle(NewAuthHandler(auth, log))
	s.Handle(NewPrivateHandler(log))
	s.Handle(NewGroupHandler(log))
	s.Handle(NewFriendHandler(log))
}
