// Package session opens one OctoPrint host and wires the LED status
// view-model components to its API client and push channel.
//
//	s, err := session.Open(ctx, session.Options{BaseURL: url, APIKey: key})
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//	go s.RunPush(ctx)
package session
