// set-role grants or revokes the admin role for one user: it patches the
// users/{uid} document and mirrors the role onto auth custom claims.
//
// Usage:
//
//	go run ./cmd/set-role -uid=xxxxx -role=admin
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"builtf/backend/internal/config"
	"builtf/backend/internal/domain/users"
	"builtf/backend/internal/firebase"
	"builtf/backend/internal/store"
)

func main() {
	uid := flag.String("uid", "", "target firebase uid")
	role := flag.String("role", users.RoleAdmin, "role to grant (user|admin)")
	flag.Parse()
	if *uid == "" {
		log.Fatal("uid is required: -uid=xxxxx")
	}
	if !users.ValidRole(*role) {
		log.Fatalf("unknown role %q (want user or admin)", *role)
	}

	ctx := context.Background()
	cfg := config.Load()

	clients, err := firebase.NewClients(ctx, cfg)
	if err != nil {
		log.Fatalf("firebase init: %v", err)
	}
	defer clients.Close()

	remote := store.NewFirestoreRemote(clients.Firestore)
	if err := remote.Merge(ctx, users.ColUsers+"/"+*uid, map[string]any{"role": *role}); err != nil {
		log.Fatalf("users doc update: %v", err)
	}

	svc := users.NewService(remote, nil, clients.Auth)
	if err := svc.SyncRoleClaims(ctx, *uid, *role); err != nil {
		log.Fatalf("SetCustomUserClaims: %v", err)
	}

	fmt.Printf("ok: role %q set for %s\n", *role, *uid)
}
