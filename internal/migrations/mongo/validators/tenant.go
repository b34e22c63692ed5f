package validators

import "go.mongodb.org/mongo-driver/bson"

var TenantValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"name", "paid", "active", "timezone", "country", "created_at"},
		"additionalProperties": true,
		"properties": bson.M{
			"name":       bson.M{"bsonType": "string", "minLength": 2, "maxLength": 100},
			"paid":       bson.M{"bsonType": "bool"},
			"active":     bson.M{"bsonType": "bool"},
			"timezone":   bson.M{"bsonType": "string"},
			"country":    bson.M{"bsonType": "string", "minLength": 2, "maxLength": 2},
			"locale":     bson.M{"enum": []string{"nl", "en", "fr"}},
			"created_at": bson.M{"bsonType": "date"},
		},
	},
}

var AvailabilityWindowValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"tenant_id", "weekday", "start", "end"},
		"additionalProperties": true,
		"properties": bson.M{
			"weekday": bson.M{
				"enum": []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"},
			},
			"start": bson.M{"bsonType": "string", "pattern": `^([01][0-9]|2[0-3]):[0-5][0-9]$`},
			"end":   bson.M{"bsonType": "string", "pattern": `^(([01][0-9]|2[0-3]):[0-5][0-9]|24:00)$`},
		},
	},
}

var CreditBalanceValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"additionalProperties": true,
		"properties": bson.M{
			"whatsapp_credits": bson.M{"bsonType": []string{"int", "long"}, "minimum": 0},
			"sms_credits":      bson.M{"bsonType": []string{"int", "long"}, "minimum": 0},
			"email_quota":      bson.M{"bsonType": []string{"int", "long"}, "minimum": 0},
			"email_used":       bson.M{"bsonType": []string{"int", "long"}, "minimum": 0},
		},
	},
}
