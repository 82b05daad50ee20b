// Package consilium provides an embeddable Go client for the consilium
// multi-specialist diagnostic engine backed by Redis and an OpenAI-compatible
// language model.
//
//	client, _ := consilium.New(ctx,
//	    consilium.WithRedis("localhost:6379", ""),
//	    consilium.WithOpenAI(os.Getenv("OPENAI_API_KEY")),
//	    consilium.WithRoles("cardiologist", "neurologist"),
//	)
//	defer client.Close()
//
//	report, _ := client.Diagnose(ctx, "chest pain radiating to the left arm")
package consilium
