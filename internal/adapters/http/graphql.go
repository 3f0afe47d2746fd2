package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/poimap/internal/core/domain"
	"github.com/samirrijal/poimap/internal/core/usecases"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	pointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Point",
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if pt, ok := p.Source.(domain.Point); ok && pt.ID != nil {
						return *pt.ID, nil
					}
					return nil, nil
				},
			},
			"name":     &graphql.Field{Type: graphql.String},
			"category": &graphql.Field{Type: graphql.String},
			"location": &graphql.Field{Type: geoPointType},
			"country": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					pt, _ := p.Source.(domain.Point)
					return pt.Attr("country"), nil
				},
			},
			"distance": &graphql.Field{
				Type: graphql.Float,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if pt, ok := p.Source.(domain.Point); ok && pt.Distance != nil {
						return *pt.Distance, nil
					}
					return nil, nil
				},
			},
		},
	})

	noticeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Notice",
		Fields: graphql.Fields{
			"category": &graphql.Field{Type: graphql.String},
			"level":    &graphql.Field{Type: graphql.String},
			"message":  &graphql.Field{Type: graphql.String},
		},
	})

	layerType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Layer",
		Fields: graphql.Fields{
			"category":   &graphql.Field{Type: graphql.String},
			"state":      &graphql.Field{Type: graphql.String},
			"count":      &graphql.Field{Type: graphql.Int},
			"source":     &graphql.Field{Type: graphql.String},
			"notice":     &graphql.Field{Type: noticeType},
			"updated_at": &graphql.Field{Type: graphql.DateTime},
		},
	})

	visibilityType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Visibility",
		Fields: graphql.Fields{
			"running_events": &graphql.Field{Type: graphql.Boolean},
			"attractions":    &graphql.Field{Type: graphql.Boolean},
		},
	})

	countsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Counts",
		Fields: graphql.Fields{
			"running_events": &graphql.Field{Type: graphql.Int},
			"attractions":    &graphql.Field{Type: graphql.Int},
			"visible":        &graphql.Field{Type: visibilityType},
		},
	})

	markerType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Marker",
		Fields: graphql.Fields{
			"category": &graphql.Field{Type: graphql.String},
			"title":    &graphql.Field{Type: graphql.String},
			"location": &graphql.Field{Type: geoPointType},
			"details": &graphql.Field{Type: graphql.NewList(graphql.NewObject(graphql.ObjectConfig{
				Name: "Detail",
				Fields: graphql.Fields{
					"label": &graphql.Field{Type: graphql.String},
					"value": &graphql.Field{Type: graphql.String},
				},
			}))},
		},
	})

	viewerType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Viewer",
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*usecases.DisplayController).ID(), nil
				},
			},
			"visibility": &graphql.Field{
				Type: visibilityType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*usecases.DisplayController).Visibility(), nil
				},
			},
			"counts": &graphql.Field{
				Type: countsType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*usecases.DisplayController).Counts(), nil
				},
			},
			"markers": &graphql.Field{
				Type: graphql.NewList(markerType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*usecases.DisplayController).Markers(), nil
				},
			},
		},
	})

	layerChangeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "LayerChange",
		Fields: graphql.Fields{
			"category": &graphql.Field{Type: graphql.String},
			"visible":  &graphql.Field{Type: graphql.Boolean},
			"counts":   &graphql.Field{Type: countsType},
		},
	})

	categoryArg := func(p graphql.ResolveParams) (domain.Category, error) {
		raw, _ := p.Args["category"].(string)
		return domain.ParseCategory(raw)
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"layers": &graphql.Field{
				Type:        graphql.NewList(layerType),
				Description: "Ingestion status of every dataset",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Points.Layers(), nil
				},
			},
			"points": &graphql.Field{
				Type:        graphql.NewList(pointType),
				Description: "All loaded points of a category",
				Args: graphql.FieldConfigArgument{
					"category": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					cat, err := categoryArg(p)
					if err != nil {
						return nil, err
					}
					return deps.Points.List(cat).Points, nil
				},
			},
			"nearby": &graphql.Field{
				Type:        graphql.NewList(pointType),
				Description: "Loaded points near a location, closest first",
				Args: graphql.FieldConfigArgument{
					"lat":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 5000.0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					lat := p.Args["lat"].(float64)
					lon := p.Args["lon"].(float64)
					radius := p.Args["radius"].(float64)
					limit := p.Args["limit"].(int)
					return deps.Points.Nearby(lat, lon, radius, limit)
				},
			},
			"viewer": &graphql.Field{
				Type:        viewerType,
				Description: "A viewer session",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Viewers.Get(p.Context, p.Args["id"].(string))
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"createViewer": &graphql.Field{
				Type:        viewerType,
				Description: "Open a viewer session with both layers visible",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Viewers.Create(p.Context)
				},
			},
			"toggleLayer": &graphql.Field{
				Type:        layerChangeType,
				Description: "Flip one layer of a viewer",
				Args: graphql.FieldConfigArgument{
					"viewer":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"category": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					cat, err := categoryArg(p)
					if err != nil {
						return nil, err
					}
					visible, counts, err := deps.Viewers.Toggle(p.Context, p.Args["viewer"].(string), cat)
					if err != nil {
						return nil, err
					}
					return layerResponse{Category: cat, Visible: visible, Counts: counts}, nil
				},
			},
			"setLayerVisible": &graphql.Field{
				Type:        layerChangeType,
				Description: "Show or hide one layer of a viewer",
				Args: graphql.FieldConfigArgument{
					"viewer":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"category": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"visible":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Boolean)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					cat, err := categoryArg(p)
					if err != nil {
						return nil, err
					}
					visible := p.Args["visible"].(bool)
					counts, err := deps.Viewers.SetVisible(p.Context, p.Args["viewer"].(string), cat, visible)
					if err != nil {
						return nil, err
					}
					return layerResponse{Category: cat, Visible: visible, Counts: counts}, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
